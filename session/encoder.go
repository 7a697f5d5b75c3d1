package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const snapshotFormatVersionV1 = 1

const (
	flagConfirmed byte = 1 << iota
	flagActive
)

// ErrUnsupportedSchema is returned by Decode for unknown version bytes.
var ErrUnsupportedSchema = errors.New("unsupported snapshot schema version")

// Encode serializes s using the current schema.
func Encode(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(snapshotFormatVersionV1)

	if err := writeShort(&buf, "identity", s.Identity); err != nil {
		return nil, err
	}
	if err := writeShort(&buf, "display name", s.DisplayName); err != nil {
		return nil, err
	}
	if len(s.Avatar) > 0xFFFF {
		return nil, errors.New("avatar too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.Avatar))); err != nil {
		return nil, err
	}
	buf.WriteString(s.Avatar)
	if err := writeShort(&buf, "role", s.Role); err != nil {
		return nil, err
	}

	var flags byte
	if s.Confirmed {
		flags |= flagConfirmed
	}
	if s.Active {
		flags |= flagActive
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.UpdatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != snapshotFormatVersionV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, version)
	}

	s := &Snapshot{}

	if s.Identity, err = readShort(reader); err != nil {
		return nil, err
	}
	if s.DisplayName, err = readShort(reader); err != nil {
		return nil, err
	}

	var avatarLen uint16
	if err := binary.Read(reader, binary.BigEndian, &avatarLen); err != nil {
		return nil, err
	}
	avatar := make([]byte, avatarLen)
	if _, err := io.ReadFull(reader, avatar); err != nil {
		return nil, err
	}
	s.Avatar = string(avatar)

	if s.Role, err = readShort(reader); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if flags&^(flagConfirmed|flagActive) != 0 {
		return nil, errors.New("unknown snapshot flags")
	}
	s.Confirmed = flags&flagConfirmed != 0
	s.Active = flags&flagActive != 0

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.UpdatedAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after snapshot")
	}
	if s.Identity == "" || s.Role == "" {
		return nil, errors.New("snapshot missing identity or role")
	}

	return s, nil
}

func writeShort(buf *bytes.Buffer, field, v string) error {
	if len(v) > 255 {
		return fmt.Errorf("%s too long", field)
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readShort(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
