package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrInvalidWAV     = errors.New("invalid wav file")
	ErrUnsupportedWAV = errors.New("unsupported wav format")
)

// LevelMetrics summarize the signal level of an uploaded WAV file. They
// feed a pre-inference warning for near-silent audio; the engine's VAD
// handles actual silence.
type LevelMetrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// NearSilent reports whether the signal sits below thresholdDBFS with a
// 6dB allowance on the peak.
func (m LevelMetrics) NearSilent(thresholdDBFS float64) bool {
	if m.Samples == 0 {
		return true
	}
	return m.RMSdBFS <= thresholdDBFS && m.PeakdBFS <= thresholdDBFS+6
}

// AnalyzeWAVLevel computes RMS and peak levels of a 16-bit PCM WAV file.
// Other encodings return ErrUnsupportedWAV; callers treat any error as
// "unknown level" and move on.
func AnalyzeWAVLevel(path string) (LevelMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return LevelMetrics{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		return LevelMetrics{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return LevelMetrics{}, ErrInvalidWAV
	}

	data, err := findPCM16Data(f)
	if err != nil {
		return LevelMetrics{}, err
	}

	var peak, sumSquares float64
	var samples int64
	for i := 0; i+2 <= len(data); i += 2 {
		value := float64(int16(binary.LittleEndian.Uint16(data[i:i+2]))) / 32768.0
		if abs := math.Abs(value); abs > peak {
			peak = abs
		}
		sumSquares += value * value
		samples++
	}

	if samples == 0 {
		return LevelMetrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	return LevelMetrics{
		RMSdBFS:  toDBFS(math.Sqrt(sumSquares / float64(samples))),
		PeakdBFS: toDBFS(peak),
		Samples:  samples,
	}, nil
}

// findPCM16Data walks the RIFF chunks and returns the data chunk bytes,
// rejecting anything that is not 16-bit integer PCM.
func findPCM16Data(f *os.File) ([]byte, error) {
	var (
		haveFmt    bool
		haveData   bool
		dataOffset int64
		dataSize   uint32
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		start, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("seek wav chunk: %w", err)
		}

		skip := int64(chunkSize)
		if chunkSize%2 != 0 {
			skip++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, ErrInvalidWAV
			}
			buf := make([]byte, 16)
			if _, err := io.ReadFull(f, buf); err != nil {
				return nil, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(buf[0:2])
			bits := binary.LittleEndian.Uint16(buf[14:16])
			if format != 1 || bits != 16 {
				return nil, ErrUnsupportedWAV
			}
			haveFmt = true
			if _, err := f.Seek(start+skip, io.SeekStart); err != nil {
				return nil, fmt.Errorf("seek past fmt chunk: %w", err)
			}
		case "data":
			haveData = true
			dataOffset = start
			dataSize = chunkSize
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("seek past data chunk: %w", err)
			}
		default:
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("seek past chunk %s: %w", chunkID, err)
			}
		}
	}

	if !haveFmt || !haveData {
		return nil, ErrInvalidWAV
	}

	if _, err := f.Seek(dataOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek wav data: %w", err)
	}
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read wav data: %w", err)
	}
	return data, nil
}

func toDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
