package port_reader

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jacobsa/go-serial/serial"

	"french_smart_meter/pkg/hcinfo"
	"french_smart_meter/pkg/metrics"
	"french_smart_meter/pkg/teleinfo"
)

// Initialize a new TeleinfoReader client.
func NewTeleinfoReader(port string, baudrate uint) *TeleinfoReader {
	return &TeleinfoReader{
		port:     port,
		baudrate: baudrate,
	}
}

// Start listening for readings. The meter repeats a frame every second or so.
// Runs in goroutine. handleReading() also runs in goroutine.
func (p *TeleinfoReader) StartReading(
	handleReading func(reading *hcinfo.HcInfo),
	handleError func(error),
) {
	p.stopSignal.Store(false)

	go func() {
		// Tolerance before we report error.
		consecutiveErrors := 0
		maxErrors := 10
		var lastError error

		// Initialize the connection
		openConnError := p.connect()
		if openConnError != nil {
			handleError(openConnError)
			return
		}

		for consecutiveErrors < maxErrors {
			// Check for Stop command
			if p.stopSignal.Load() {
				log.Println("Stop signal received, disconnecting")
				p.disconnect()
				return
			}

			// Decode the next frame
			reading, err := hcinfo.Read(p.src)
			if err != nil {
				metrics.RecordDecodeError(err)

				// Corrupted or out-of-plan frames happen on a noisy line;
				// resynchronize on the next frame.
				if isSoftDecodeError(err) {
					log.Printf("Dropped frame: %v", err)
					continue
				}

				consecutiveErrors++
				lastError = err
				log.Printf("Error reading frame (%d/%d): %v", consecutiveErrors, maxErrors, err)
				time.Sleep(time.Second)
				continue
			}

			metrics.RecordReading(reading)

			p.readingMutex.Lock()
			p.latestReading = reading
			p.readingMutex.Unlock()

			go handleReading(reading)
			consecutiveErrors = 0
		}

		log.Printf("Too many consecutive errors (%d), stopping reader: %v", maxErrors, lastError)
		handleError(lastError)
		p.disconnect()
	}()
}

// StopReading may be called from any goroutine; the reader loop observes the
// stop flag between frames.
func (p *TeleinfoReader) StopReading() {
	p.stopSignal.Store(true)
	p.disconnect()
}

func (p *TeleinfoReader) GetLatestReading() *hcinfo.HcInfo {
	p.readingMutex.RLock()
	defer p.readingMutex.RUnlock()
	return p.latestReading
}

// Open the connection to the Teleinfo user port.
func (p *TeleinfoReader) connect() error {
	// Mode historique signals at 1200 baud, 7 data bits, even parity
	options := serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baudrate,
		DataBits:        7,
		StopBits:        1,
		ParityMode:      serial.PARITY_EVEN,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	p.serialPort = port
	// The decoder pulls single bytes; one buffered reader lives as long as
	// the connection so nothing is lost between frames.
	p.src = bufio.NewReader(port)
	log.Printf("Connected to Teleinfo port on %s", p.port)
	return nil
}

func (p *TeleinfoReader) disconnect() {
	if p.serialPort != nil {
		p.serialPort.Close()
		log.Println("Disconnected from Teleinfo port")
	}
}

// isSoftDecodeError reports whether the frame was bad but the stream is
// still usable, as opposed to the port itself failing.
func isSoftDecodeError(err error) bool {
	return errors.Is(err, teleinfo.ErrChecksumMismatch) ||
		errors.Is(err, teleinfo.ErrFrameSyntax) ||
		errors.Is(err, teleinfo.ErrTransmissionAborted) ||
		errors.Is(err, hcinfo.ErrMissingField) ||
		errors.Is(err, hcinfo.ErrPeriodeHorsPlan)
}
