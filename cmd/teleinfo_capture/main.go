// Teleinfo capture records raw meter frames to a file and replays them
// through the decoder, so field problems can be reproduced offline.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jacobsa/go-serial/serial"

	"french_smart_meter/pkg/capture"
	"french_smart_meter/pkg/config"
	"french_smart_meter/pkg/hcinfo"
	"french_smart_meter/pkg/pathing"
	"french_smart_meter/pkg/teleinfo"
)

func main() {
	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "record":
		frameCount := 10
		if len(os.Args) > 3 {
			n, err := strconv.Atoi(os.Args[3])
			if err != nil || n < 1 {
				log.Fatalf("Invalid frame count: %s", os.Args[3])
			}
			frameCount = n
		}
		record(resolveCapturePath(os.Args[2]), frameCount)
	case "replay":
		replay(resolveCapturePath(os.Args[2]))
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  teleinfo_capture record <file> [frames]   record raw frames from the serial port")
	fmt.Println("  teleinfo_capture replay <file>            decode a recorded capture file")
}

// resolveCapturePath keeps bare file names in the shared capture directory;
// anything with a path separator is used as given.
func resolveCapturePath(path string) string {
	if filepath.IsAbs(path) || strings.ContainsRune(path, os.PathSeparator) {
		return path
	}
	return filepath.Join(pathing.GetCaptureDir(), path)
}

// record copies raw frames from the configured serial port into a capture
// file, each frame stored with its STX and ETX bytes included.
func record(path string, frameCount int) {
	if err := config.LoadTeleinfoAPIConfig(); err != nil {
		log.Fatalf("Failed to load teleinfo API config: %v", err)
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:        config.ActiveTeleinfoAPIConfig.SerialDevice,
		BaudRate:        config.ActiveTeleinfoAPIConfig.Baudrate,
		DataBits:        7,
		StopBits:        1,
		ParityMode:      serial.PARITY_EVEN,
		MinimumReadSize: 1,
	})
	if err != nil {
		log.Fatalf("Failed to open serial port: %v", err)
	}
	defer port.Close()

	file, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create capture file: %v", err)
	}
	defer file.Close()

	src := bufio.NewReader(port)
	writer := capture.NewWriter(file)

	recorded := 0
	for recorded < frameCount {
		frame, err := copyRawFrame(src)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Fatalf("Serial port closed after %d frames", recorded)
			}
			log.Printf("Skipping frame: %v", err)
			continue
		}
		if err := writer.WriteRecord(frame); err != nil {
			log.Fatalf("Failed to write record: %v", err)
		}
		recorded++
		log.Printf("Recorded frame %d/%d (%d bytes)", recorded, frameCount, len(frame))
	}
}

// copyRawFrame reads bytes until it has one full frame, STX through ETX
// inclusive, without decoding it. An EOT discards the frame in progress;
// the next call hunts for a fresh start marker.
func copyRawFrame(src io.ByteReader) ([]byte, error) {
	// Synchronize on the next start marker
	for {
		b, err := src.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == teleinfo.STX {
			break
		}
	}

	frame := []byte{teleinfo.STX}
	for {
		b, err := src.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == teleinfo.EOT {
			return nil, fmt.Errorf("transmission interrupted mid-frame")
		}
		frame = append(frame, b)
		if b == teleinfo.ETX {
			return frame, nil
		}
		if len(frame) > capture.MaxRecordBytes {
			return nil, fmt.Errorf("frame exceeds %d bytes without an end marker", capture.MaxRecordBytes)
		}
	}
}

// replay runs every recorded frame through the real decoder and prints the
// extracted reading, or the decode error that frame produces.
func replay(path string) {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open capture file: %v", err)
	}
	defer file.Close()

	src := capture.NewReplaySource(file)

	decoded := 0
	for {
		reading, err := hcinfo.Read(src)
		if err != nil {
			if errors.Is(err, teleinfo.ErrEndOfInput) {
				log.Printf("End of capture, %d readings decoded", decoded)
				return
			}
			if errors.Is(err, capture.ErrCorruptRecord) || errors.Is(err, capture.ErrTruncated) {
				log.Fatalf("Capture file damaged: %v", err)
			}
			fmt.Printf("decode error: %v\n", err)
			continue
		}
		decoded++
		fmt.Println(string(reading.ToJsonBytes()))
	}
}
