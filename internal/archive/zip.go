// Package archive builds the single-file deployment package for the regional
// forwarder function. The output is a minimal ZIP: one entry, raw-deflate
// payload, zeroed timestamps, no extra fields and no comment, so identical
// input always produces identical bytes.
package archive

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// EntryName is the fixed name of the single archive entry. The forwarder
// runtime resolves its handler from this filename.
const EntryName = "index.py"

const (
	localHeaderSig     = 0x04034b50
	centralDirSig      = 0x02014b50
	endOfCentralDirSig = 0x06054b50
	zipVersion         = 20 // 2.0, both "made by" and "needed to extract"
	methodDeflate      = 8
)

// Build produces the deployment archive for the given UTF-8 source payload.
func Build(payload string) ([]byte, error) {
	raw := []byte(payload)
	crc := crc32.ChecksumIEEE(raw)

	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := fw.Write(raw); err != nil {
		return nil, fmt.Errorf("deflate payload: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("flush deflate stream: %w", err)
	}

	var out bytes.Buffer
	name := []byte(EntryName)

	// Local file header, 30 bytes plus the filename.
	writeUint32(&out, localHeaderSig)
	writeUint16(&out, zipVersion)
	writeUint16(&out, 0) // general purpose flags
	writeUint16(&out, methodDeflate)
	writeUint16(&out, 0) // mod time, fixed at zero for reproducibility
	writeUint16(&out, 0) // mod date
	writeUint32(&out, crc)
	writeUint32(&out, uint32(compressed.Len()))
	writeUint32(&out, uint32(len(raw)))
	writeUint16(&out, uint16(len(name)))
	writeUint16(&out, 0) // extra field length
	out.Write(name)

	out.Write(compressed.Bytes())

	// Central directory record, 46 bytes plus the filename.
	cdOffset := uint32(out.Len())
	writeUint32(&out, centralDirSig)
	writeUint16(&out, zipVersion) // version made by
	writeUint16(&out, zipVersion) // version needed
	writeUint16(&out, 0)          // flags
	writeUint16(&out, methodDeflate)
	writeUint16(&out, 0) // mod time
	writeUint16(&out, 0) // mod date
	writeUint32(&out, crc)
	writeUint32(&out, uint32(compressed.Len()))
	writeUint32(&out, uint32(len(raw)))
	writeUint16(&out, uint16(len(name)))
	writeUint16(&out, 0) // extra field length
	writeUint16(&out, 0) // comment length
	writeUint16(&out, 0) // disk number
	writeUint16(&out, 0) // internal attributes
	writeUint32(&out, 0) // external attributes
	writeUint32(&out, 0) // local header offset
	out.Write(name)
	cdSize := uint32(out.Len()) - cdOffset

	// End of central directory, 22 bytes.
	writeUint32(&out, endOfCentralDirSig)
	writeUint16(&out, 0) // disk number
	writeUint16(&out, 0) // central directory disk
	writeUint16(&out, 1) // entries on this disk
	writeUint16(&out, 1) // total entries
	writeUint32(&out, cdSize)
	writeUint32(&out, cdOffset)
	writeUint16(&out, 0) // comment length

	return out.Bytes(), nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
