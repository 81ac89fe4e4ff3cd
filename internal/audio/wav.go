package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Signal is a decoded mono PCM stream.
type Signal struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

const (
	riffHeaderSize = 12
	fmtChunkID     = "fmt "
	dataChunkID    = "data"
)

// ReadWAV decodes a 16-bit PCM RIFF/WAVE file. The extraction stage always
// produces mono output; multi-channel files are rejected so a mismatch
// surfaces immediately instead of as garbled audio.
func ReadWAV(path string) (Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Signal{}, fmt.Errorf("read wav: %w", err)
	}
	return DecodeWAV(data)
}

// DecodeWAV decodes an in-memory 16-bit PCM RIFF/WAVE payload.
func DecodeWAV(data []byte) (Signal, error) {
	if len(data) < riffHeaderSize {
		return Signal{}, errors.New("wav: file too short for RIFF header")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Signal{}, errors.New("wav: not a RIFF/WAVE file")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFmt       bool
		pcm           []byte
	)

	offset := riffHeaderSize
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case fmtChunkID:
			if chunkSize < 16 {
				return Signal{}, errors.New("wav: fmt chunk truncated")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return Signal{}, fmt.Errorf("wav: unsupported format tag %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case dataChunkID:
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt {
		return Signal{}, errors.New("wav: missing fmt chunk")
	}
	if pcm == nil {
		return Signal{}, errors.New("wav: missing data chunk")
	}
	if bitsPerSample != 16 {
		return Signal{}, fmt.Errorf("wav: unsupported bit depth %d, want 16", bitsPerSample)
	}
	if channels != 1 {
		return Signal{}, fmt.Errorf("wav: got %d channels, want mono", channels)
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return Signal{SampleRate: sampleRate, Samples: samples}, nil
}

// WriteWAV encodes a mono 16-bit PCM signal to path.
func WriteWAV(path string, sig Signal) error {
	if sig.SampleRate <= 0 {
		return fmt.Errorf("wav: invalid sample rate %d", sig.SampleRate)
	}
	data, err := EncodeWAV(sig)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// EncodeWAV renders a mono 16-bit PCM signal as RIFF/WAVE bytes.
func EncodeWAV(sig Signal) ([]byte, error) {
	if sig.SampleRate <= 0 {
		return nil, fmt.Errorf("wav: invalid sample rate %d", sig.SampleRate)
	}

	dataSize := len(sig.Samples) * 2
	var buf bytes.Buffer
	buf.Grow(riffHeaderSize + 24 + 8 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+24+8+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString(fmtChunkID)
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sig.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sig.SampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))                // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))               // bits per sample

	buf.WriteString(dataChunkID)
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, sample := range sig.Samples {
		binary.Write(&buf, binary.LittleEndian, uint16(sample))
	}
	return buf.Bytes(), nil
}
