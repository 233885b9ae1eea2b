package ssbspoof

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Raw IQ files are headerless interleaved little-endian float32 (real, imag)
// pairs, 8 bytes per complex sample.
const sampleByteSize = 8

// ReadSamples loads an IQ file. maxSamples caps the number of samples read;
// 0 loads the whole file. Files whose size is not a whole number of samples
// are rejected.
func ReadSamples(filename string, maxSamples uint32) ([]complex64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size()%sampleByteSize != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of %d bytes", filename, info.Size(), sampleByteSize)
	}

	n := info.Size() / sampleByteSize
	if maxSamples > 0 && int64(maxSamples) < n {
		n = int64(maxSamples)
	}

	samples := make([]complex64, n)
	if err := binary.Read(f, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("%s: %v", filename, err)
	}
	return samples, nil
}

// WriteSamples appends buf to w in the raw IQ format.
func WriteSamples(w io.Writer, buf []complex64) error {
	return binary.Write(w, binary.LittleEndian, buf)
}

// SampleFileSink streams received samples to a capture file during scanning.
type SampleFileSink struct {
	file  *os.File
	path  string
	total uint64
}

func NewSampleFileSink(path string) (*SampleFileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &SampleFileSink{file: f, path: path}, nil
}

func (s *SampleFileSink) Append(buf []complex64) error {
	if err := WriteSamples(s.file, buf); err != nil {
		return err
	}
	s.total += uint64(len(buf))
	return nil
}

// Total is the number of samples written so far.
func (s *SampleFileSink) Total() uint64 {
	return s.total
}

func (s *SampleFileSink) Path() string {
	return s.path
}

func (s *SampleFileSink) Close() error {
	return s.file.Close()
}
