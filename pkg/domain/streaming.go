package domain

import "fmt"

// StreamingMode is the batching hint of a range read.
type StreamingMode int

const (
	StreamingModeWantAll  StreamingMode = -2
	StreamingModeIterator StreamingMode = -1
	StreamingModeExact    StreamingMode = 0
	StreamingModeSmall    StreamingMode = 1
	StreamingModeMedium   StreamingMode = 2
	StreamingModeLarge    StreamingMode = 3
	StreamingModeSerial   StreamingMode = 4
)

var streamingModes = []StreamingMode{
	StreamingModeWantAll,
	StreamingModeIterator,
	StreamingModeExact,
	StreamingModeSmall,
	StreamingModeMedium,
	StreamingModeLarge,
	StreamingModeSerial,
}

// Code returns the wire code of the mode.
func (m StreamingMode) Code() int {
	return int(m)
}

func (m StreamingMode) String() string {
	switch m {
	case StreamingModeWantAll:
		return "WANT_ALL"
	case StreamingModeIterator:
		return "ITERATOR"
	case StreamingModeExact:
		return "EXACT"
	case StreamingModeSmall:
		return "SMALL"
	case StreamingModeMedium:
		return "MEDIUM"
	case StreamingModeLarge:
		return "LARGE"
	case StreamingModeSerial:
		return "SERIAL"
	}
	return fmt.Sprintf("StreamingMode(%d)", int(m))
}

// StreamingModeFromCode looks up a mode by its wire code.
func StreamingModeFromCode(code int) (StreamingMode, error) {
	for _, m := range streamingModes {
		if m.Code() == code {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid streaming mode code: %d", ErrInvalidArgument, code)
}
