package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions
var ErrUnsupportedFormat = errors.New("audio: unsupported file format")

// Load decodes an audio file into a buffer, choosing the decoder by extension.
// WAV, MP3 and Ogg Vorbis are supported. It returns the file's sample rate.
func Load(path string) (*Buffer, int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		buf, info, err := ReadWAVFile(path)
		if err != nil {
			return nil, 0, err
		}
		return buf, info.SampleRate, nil
	case ".mp3", ".ogg", ".oga":
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if ext == ".mp3" {
		return decodeMP3(f)
	}
	return decodeVorbis(f)
}

func decodeMP3(r io.Reader) (*Buffer, int, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open MP3 stream: %w", err)
	}

	// go-mp3 always produces 16-bit little-endian stereo
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = PCM16ToFloat(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}

	buf, err := Deinterleave(samples, 2)
	if err != nil {
		return nil, 0, err
	}
	return buf, dec.SampleRate(), nil
}

func decodeVorbis(r io.Reader) (*Buffer, int, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode Ogg Vorbis stream: %w", err)
	}

	buf, err := Deinterleave(samples, format.Channels)
	if err != nil {
		return nil, 0, err
	}
	return buf, format.SampleRate, nil
}
