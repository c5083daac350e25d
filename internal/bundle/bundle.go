// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package bundle streams a batch of Messiah .pyc files in and out of
// a single zstd-compressed archive (10.4), so a batch run can ship
// `pycretarget -bundle in.zst -bundle-out out.zst` as one unit
// instead of touching the filesystem per file.
//
// The archive format is deliberately minimal: a flat sequence of
// (name, payload) records, each framed by a little-endian uint32
// length prefix, with no directory or central index. Members stream
// through the normal single-file retarget path one at a time, so
// there is no need for random access into the archive.
package bundle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Writer appends members to a zstd-compressed bundle.
type Writer struct {
	enc *zstd.Encoder
}

// NewWriter wraps w as a new bundle. Close must be called to flush
// the underlying zstd stream.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// WriteMember appends one named payload to the bundle.
func (bw *Writer) WriteMember(name string, data []byte) error {
	if len(name) > 0xffff {
		return fmt.Errorf("bundle: member name %q exceeds 65535 bytes", name)
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(name)))
	if _, err := bw.enc.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(bw.enc, name); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := bw.enc.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := bw.enc.Write(data)
	return err
}

// Close flushes and closes the underlying zstd encoder.
func (bw *Writer) Close() error {
	return bw.enc.Close()
}

// Reader reads members back out of a zstd-compressed bundle in the
// order they were written.
type Reader struct {
	dec *zstd.Decoder
}

// NewReader wraps r for reading a bundle written by Writer.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	return &Reader{dec: dec}, nil
}

// Close releases the underlying zstd decoder's resources.
func (br *Reader) Close() {
	br.dec.Close()
}

// Next reads the next member's name and payload, or returns io.EOF
// once the archive is exhausted.
func (br *Reader) Next() (name string, data []byte, err error) {
	nameLen, err := br.readUint32()
	if err != nil {
		return "", nil, err
	}
	nameBytes, err := br.readN(int(nameLen))
	if err != nil {
		return "", nil, fmt.Errorf("bundle: truncated member name: %w", err)
	}
	dataLen, err := br.readUint32()
	if err != nil {
		return "", nil, fmt.Errorf("bundle: truncated member header: %w", err)
	}
	data, err = br.readN(int(dataLen))
	if err != nil {
		return "", nil, fmt.Errorf("bundle: truncated member payload: %w", err)
	}
	return string(nameBytes), data, nil
}

func (br *Reader) readUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(br.dec, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (br *Reader) readN(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.dec, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
