package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// wavBitDepth is the bit depth used for every file this package writes
	wavBitDepth = 16

	// wavFormatPCM is the WAVE_FORMAT_PCM tag
	wavFormatPCM = 1
)

// ErrInvalidWAV is returned when data cannot be parsed as a PCM WAV file
var ErrInvalidWAV = errors.New("audio: invalid WAV data")

// WAVInfo describes a decoded WAV stream
type WAVInfo struct {
	SampleRate    int     `json:"sample_rate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bits_per_sample"`
	NumSamples    int     `json:"num_samples"`
	Duration      float64 `json:"duration_seconds"`
}

// WriteWAV encodes buf as 16-bit PCM WAV at sampleRate.
// The channel count is taken from the buffer.
func WriteWAV(w io.WriteSeeker, buf *Buffer, sampleRate int) error {
	if buf.NumChannels() == 0 {
		return fmt.Errorf("cannot encode a buffer without channels")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, buf.NumChannels(), wavFormatPCM)

	interleaved := buf.Interleave()
	data := make([]int, len(interleaved))
	for i, v := range interleaved {
		data[i] = int(FloatToPCM16(v))
	}

	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: buf.NumChannels(),
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}
	return nil
}

// WriteWAVFile writes buf to path as 16-bit PCM WAV, replacing any existing file
func WriteWAVFile(path string, buf *Buffer, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file %s: %w", path, err)
	}

	if err := WriteWAV(f, buf, sampleRate); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close WAV file %s: %w", path, err)
	}
	return nil
}

// ReadWAV decodes a PCM WAV stream. Channel count and sample count come from
// the file and define the shape of the returned buffer.
func ReadWAV(r io.ReadSeeker) (*Buffer, *WAVInfo, error) {
	dec := wav.NewDecoder(r)
	// IsValidFile also rejects zero-length data chunks, which are valid here
	dec.ReadInfo()
	if err := dec.Err(); err != nil || dec.NumChans < 1 || dec.BitDepth < 8 {
		return nil, nil, fmt.Errorf("%w: missing RIFF/WAVE header or fmt chunk", ErrInvalidWAV)
	}

	if dec.WavAudioFormat != wavFormatPCM {
		return nil, nil, fmt.Errorf("%w: unsupported audio format %d (only PCM is supported)",
			ErrInvalidWAV, dec.WavAudioFormat)
	}

	bitDepth := int(dec.BitDepth)
	scale, err := pcmScale(bitDepth)
	if err != nil {
		return nil, nil, err
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read samples: %v", ErrInvalidWAV, err)
	}

	numChannels := int(dec.NumChans)
	if numChannels <= 0 {
		return nil, nil, fmt.Errorf("%w: channel count is %d", ErrInvalidWAV, numChannels)
	}

	interleaved := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		if bitDepth == 8 {
			// 8-bit WAV samples are unsigned
			v -= 128
		}
		interleaved[i] = float32(float64(v) / scale)
	}

	buf, err := Deinterleave(interleaved, numChannels)
	if err != nil {
		return nil, nil, err
	}

	sampleRate := int(dec.SampleRate)
	info := &WAVInfo{
		SampleRate:    sampleRate,
		Channels:      numChannels,
		BitsPerSample: bitDepth,
		NumSamples:    buf.NumSamples(),
		Duration:      buf.Duration(sampleRate),
	}
	return buf, info, nil
}

// ReadWAVFile decodes the WAV file at path
func ReadWAVFile(path string) (*Buffer, *WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open WAV file %s: %w", path, err)
	}
	defer f.Close()

	return ReadWAV(f)
}

// DecodeWAV decodes WAV bytes held in memory
func DecodeWAV(data []byte) (*Buffer, *WAVInfo, error) {
	return ReadWAV(bytes.NewReader(data))
}

// EncodeWAV encodes buf into WAV bytes. The encoder needs a seekable sink, so
// the data is staged in a scoped temporary file under dir.
func EncodeWAV(dir string, buf *Buffer, sampleRate int) ([]byte, error) {
	tmp, err := CreateTemp(dir, "encode-*.wav")
	if err != nil {
		return nil, err
	}
	defer tmp.Remove()

	if err := WriteWAVFile(tmp.Path(), buf, sampleRate); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp.Path())
}

// FloatToPCM16 converts a [-1, 1] sample to 16-bit PCM, clipping out-of-range values
func FloatToPCM16(v float32) int16 {
	s := math.Round(float64(v) * 32768)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}

// PCM16ToFloat converts a 16-bit PCM sample to [-1, 1)
func PCM16ToFloat(v int16) float32 {
	return float32(v) / 32768
}

func pcmScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
		return float64(int64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitDepth)
	}
}
