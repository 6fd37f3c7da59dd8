package port_reader

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"

	"french_smart_meter/pkg/hcinfo"
)

type TeleinfoReader struct {
	port          string
	baudrate      uint
	serialPort    io.ReadWriteCloser
	src           *bufio.Reader
	latestReading *hcinfo.HcInfo
	readingMutex  sync.RWMutex
	stopSignal    atomic.Bool
}
