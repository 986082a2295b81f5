package bus

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// busMagic starts every BUS file.
var busMagic = [4]byte{'B', 'U', 'S', 0}

// Version is the BUS format version this package reads and writes.
const Version = 1

// headerFixedBytes is the size of the fixed header prefix; a tlen-byte
// free-text block follows it.
const headerFixedBytes = 20

// Header is the BUS file header.  CBLen and UMILen are the barcode and
// UMI lengths in base pairs; records from files with different lengths
// must never be mixed.
type Header struct {
	Version uint32
	CBLen   uint32
	UMILen  uint32
	Text    string
}

// Params is the schema-relevant part of a Header.  Files are mergeable
// only if their Params are equal.
type Params struct {
	CBLen  uint32
	UMILen uint32
}

// Params returns the barcode/UMI widths of h.
func (h Header) Params() Params { return Params{CBLen: h.CBLen, UMILen: h.UMILen} }

// NewHeader returns a version-1 header with the given barcode and UMI
// lengths.
func NewHeader(cbLen, umiLen uint32) Header {
	return Header{Version: Version, CBLen: cbLen, UMILen: umiLen}
}

func readHeader(r io.Reader) (Header, error) {
	var fixed [headerFixedBytes]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return Header{}, errors.Wrap(err, "bus: reading header")
	}
	var magic [4]byte
	copy(magic[:], fixed[0:4])
	if magic != busMagic {
		return Header{}, errors.Errorf("bus: bad magic %q, not a BUS file", magic)
	}
	h := Header{
		Version: binary.LittleEndian.Uint32(fixed[4:8]),
		CBLen:   binary.LittleEndian.Uint32(fixed[8:12]),
		UMILen:  binary.LittleEndian.Uint32(fixed[12:16]),
	}
	if h.Version != Version {
		return Header{}, errors.Errorf("bus: unsupported version %d", h.Version)
	}
	if h.CBLen == 0 || h.CBLen > 32 || h.UMILen == 0 || h.UMILen > 32 {
		return Header{}, errors.Errorf("bus: implausible barcode/umi lengths %d/%d", h.CBLen, h.UMILen)
	}
	tlen := binary.LittleEndian.Uint32(fixed[16:20])
	if tlen > 0 {
		text := make([]byte, tlen)
		if _, err := io.ReadFull(r, text); err != nil {
			return Header{}, errors.Wrap(err, "bus: reading header text")
		}
		h.Text = string(text)
	}
	return h, nil
}

func writeHeader(w io.Writer, h Header) error {
	buf := make([]byte, headerFixedBytes, headerFixedBytes+len(h.Text))
	copy(buf[0:4], busMagic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.CBLen)
	binary.LittleEndian.PutUint32(buf[12:16], h.UMILen)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(h.Text)))
	buf = append(buf, h.Text...)
	_, err := w.Write(buf)
	return errors.Wrap(err, "bus: writing header")
}
