package mlirc

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Compiled blobs are a framed container: a fixed header naming the
// platform, stream count and capabilities, followed by the serialized
// topology and the weights. Everything is little endian.
const (
	blobMagic   = "NPUB"
	blobVersion = 1

	// flagProfiling marks blobs compiled with profiling support.
	flagProfiling = 1 << 0
)

type container struct {
	platform   string
	numStreams uint32
	flags      uint32
	xml        []byte
	weights    []byte
}

func (c *container) encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(blobMagic)
	var header [16]byte
	binary.LittleEndian.PutUint32(header[0:], blobVersion)
	binary.LittleEndian.PutUint32(header[4:], c.numStreams)
	binary.LittleEndian.PutUint32(header[8:], c.flags)
	binary.LittleEndian.PutUint32(header[12:], uint32(len(c.platform)))
	buf.Write(header[:])
	buf.WriteString(c.platform)

	var sizes [16]byte
	binary.LittleEndian.PutUint64(sizes[0:], uint64(len(c.xml)))
	binary.LittleEndian.PutUint64(sizes[8:], uint64(len(c.weights)))
	buf.Write(sizes[:])
	buf.Write(c.xml)
	buf.Write(c.weights)
	return buf.Bytes()
}

func decodeContainer(blob []byte) (*container, error) {
	if len(blob) < len(blobMagic)+16 || string(blob[:len(blobMagic)]) != blobMagic {
		return nil, errors.Errorf("not a compiled NPU blob")
	}
	rest := blob[len(blobMagic):]
	version := binary.LittleEndian.Uint32(rest[0:])
	if version != blobVersion {
		return nil, errors.Errorf("unsupported blob version %d", version)
	}
	c := &container{
		numStreams: binary.LittleEndian.Uint32(rest[4:]),
		flags:      binary.LittleEndian.Uint32(rest[8:]),
	}
	platformLen := int(binary.LittleEndian.Uint32(rest[12:]))
	rest = rest[16:]
	if len(rest) < platformLen+16 {
		return nil, errors.Errorf("truncated blob header")
	}
	c.platform = string(rest[:platformLen])
	rest = rest[platformLen:]
	xmlLen := binary.LittleEndian.Uint64(rest[0:])
	weightsLen := binary.LittleEndian.Uint64(rest[8:])
	rest = rest[16:]
	if uint64(len(rest)) != xmlLen+weightsLen {
		return nil, errors.Errorf("blob payload of %d bytes, header promises %d",
			len(rest), xmlLen+weightsLen)
	}
	c.xml = rest[:xmlLen]
	c.weights = rest[xmlLen:]
	return c, nil
}
