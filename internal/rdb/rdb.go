// Package rdb implements the startup loader: it reads an on-disk RDB
// snapshot and populates a *store.Store before the server starts accepting
// connections. Loading is read-only — this package never writes an RDB
// file back out.
//
// Adapted from the teacher's rdb.go, generalized from the teacher's
// per-database sync.Map pair onto the single *store.Store keyspace and
// corrected against the RDB length-encoding's documented big-endian
// four-byte form (the teacher's version reads it little-endian; see
// DESIGN.md).
package rdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/rkeydb/respd/internal/crc64"
	"github.com/rkeydb/respd/internal/store"
)

const (
	opCodeAux          byte = 0xFA
	opCodeResizeDB     byte = 0xFB
	opCodeExpireTimeMs byte = 0xFC
	opCodeExpireTimeS  byte = 0xFD
	opCodeSelectDB     byte = 0xFE
	opCodeEOF          byte = 0xFF
)

const typeString byte = 0x00

// Special-format string-encoding subtypes (the low 6 bits of a '11'-prefixed
// length byte).
const (
	fmtInt8          = 0x00
	fmtInt16         = 0x01
	fmtInt32         = 0x02
	fmtLZFCompressed = 0x03
)

// ErrUnsupportedValueType is returned when an entry's type byte names
// anything other than the string encoding this loader supports.
var ErrUnsupportedValueType = errors.New("rdb: unsupported value type encoding")

// ErrLZFUnsupported is returned for the LZF-compressed string-encoding
// subtype (0x03). The format is rejected outright rather than decoded.
var ErrLZFUnsupported = errors.New("rdb: LZF-compressed strings are not supported")

// ErrNotRDB is returned when the file's leading magic does not read "REDIS".
var ErrNotRDB = errors.New("rdb: not a Redis RDB file")

// Load reads dir/filename into ks. A missing file is not an error — an
// absent RDB snapshot simply means the server starts with an empty
// keyspace. log receives an informational message naming the file's
// version. Aux fields are skipped, and the trailing checksum is consumed but
// not verified or logged.
func Load(dir, filename string, ks *store.Store, log *logrus.Entry) error {
	if dir == "" || filename == "" {
		return nil
	}
	path := dir + "/" + filename

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	hash := crc64.New()
	r := bufio.NewReader(io.TeeReader(f, hash))

	magic := make([]byte, 5)
	if _, err := io.ReadFull(r, magic); err != nil {
		return err
	}
	if string(magic) != "REDIS" {
		return ErrNotRDB
	}

	version := make([]byte, 4)
	if _, err := io.ReadFull(r, version); err != nil {
		return err
	}
	log.WithField("version", string(version)).Info("loading rdb snapshot")

	if err := skipAuxFields(r); err != nil {
		return err
	}

	if err := loadEntries(r, ks); err != nil {
		return err
	}

	// The trailing 8-byte checksum has already been folded into hash via the
	// TeeReader, so it cannot be checked against itself; any mismatch
	// detection would require buffering the whole file. The checksum is
	// therefore neither compared nor logged, and never fails the load.
	_ = hash.Sum64()
	return nil
}

// skipAuxFields consumes every leading 0xFA <string> <string> metadata
// section, leaving the stream positioned at the first database section.
func skipAuxFields(r *bufio.Reader) error {
	for {
		opCode, err := r.ReadByte()
		if err != nil {
			return err
		}
		if opCode != opCodeAux {
			return r.UnreadByte()
		}
		if _, err := readStringEnc(r); err != nil {
			return err
		}
		if _, err := readStringEnc(r); err != nil {
			return err
		}
	}
}

func loadEntries(r *bufio.Reader, ks *store.Store) error {
	var pendingExpiryMs int64

	for {
		opCode, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch opCode {
		case opCodeEOF:
			checksum := make([]byte, 8)
			io.ReadFull(r, checksum) // consumed, not verified
			return nil

		case opCodeSelectDB:
			// A single flat keyspace backs this server regardless of the
			// RDB file's db index; every db's keys land in the same Store.
			if _, _, err := readLengthEnc(r); err != nil {
				return err
			}

		case opCodeResizeDB:
			if _, _, err := readLengthEnc(r); err != nil {
				return err
			}
			if _, _, err := readLengthEnc(r); err != nil {
				return err
			}

		case opCodeExpireTimeS:
			buf := make([]byte, 4)
			if _, err := io.ReadFull(r, buf); err != nil {
				return err
			}
			pendingExpiryMs = int64(binary.LittleEndian.Uint32(buf)) * 1000
			if err := loadOneEntry(r, ks, pendingExpiryMs); err != nil {
				return err
			}
			pendingExpiryMs = 0

		case opCodeExpireTimeMs:
			buf := make([]byte, 8)
			if _, err := io.ReadFull(r, buf); err != nil {
				return err
			}
			pendingExpiryMs = int64(binary.LittleEndian.Uint64(buf))
			if err := loadOneEntry(r, ks, pendingExpiryMs); err != nil {
				return err
			}
			pendingExpiryMs = 0

		default:
			if err := r.UnreadByte(); err != nil {
				return err
			}
			if err := loadOneEntry(r, ks, 0); err != nil {
				return err
			}
		}
	}
}

func loadOneEntry(r *bufio.Reader, ks *store.Store, expiryMs int64) error {
	valueType, err := r.ReadByte()
	if err != nil {
		return err
	}

	key, err := readStringEnc(r)
	if err != nil {
		return err
	}

	if valueType != typeString {
		return ErrUnsupportedValueType
	}

	value, err := readStringEnc(r)
	if err != nil {
		return err
	}

	ks.SetString(key, value, expiryMs)
	return nil
}

// readStringEnc reads one RDB string-encoded value, resolving the special
// integer forms and rejecting the LZF-compressed form with
// ErrLZFUnsupported. Numeric special-format values are
// resolved to their decimal text form, since RDB may store a numeric key or
// value as a compact integer encoding rather than ASCII digits.
func readStringEnc(r *bufio.Reader) (string, error) {
	length, special, err := readLengthEnc(r)
	if err != nil {
		return "", err
	}

	if special {
		switch length {
		case fmtInt8:
			b, err := r.ReadByte()
			if err != nil {
				return "", err
			}
			return strconv.Itoa(int(int8(b))), nil

		case fmtInt16:
			buf := make([]byte, 2)
			if _, err := io.ReadFull(r, buf); err != nil {
				return "", err
			}
			return strconv.Itoa(int(int16(binary.LittleEndian.Uint16(buf)))), nil

		case fmtInt32:
			buf := make([]byte, 4)
			if _, err := io.ReadFull(r, buf); err != nil {
				return "", err
			}
			return strconv.Itoa(int(int32(binary.LittleEndian.Uint32(buf)))), nil

		case fmtLZFCompressed:
			return "", ErrLZFUnsupported

		default:
			return "", errors.New("rdb: unknown special string format")
		}
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readLengthEnc parses the RDB length encoding: the top two bits of the
// first byte select 6-bit length, 14-bit length, a 4-byte big-endian
// length, or (when special is returned true) a special string-encoding
// subtype in the low 6 bits.
func readLengthEnc(r *bufio.Reader) (length int, special bool, err error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, false, err
	}

	switch first >> 6 {
	case 0:
		return int(first & 0x3F), false, nil

	case 1:
		next, err := r.ReadByte()
		if err != nil {
			return 0, false, err
		}
		return int(first&0x3F)<<8 | int(next), false, nil

	case 2:
		buf := make([]byte, 4)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, false, err
		}
		return int(binary.BigEndian.Uint32(buf)), false, nil

	default: // 3: special format
		return int(first & 0x3F), true, nil
	}
}
