package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeMaterialsRLE encodes chunk materials as base64 of repeated runs,
// each a raw material byte followed by the run length as a uvarint. It also
// returns the run count.
func EncodeMaterialsRLE(materials []byte) (string, int) {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	runs := 0
	i := 0
	for i < len(materials) {
		m := materials[i]
		run := 1
		for j := i + 1; j < len(materials) && materials[j] == m; j++ {
			run++
		}

		buf.WriteByte(m)
		n := binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
		runs++
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), runs
}

// DecodeMaterialsRLE expands an encoding into exactly want bytes.
func DecodeMaterialsRLE(b64 string, want int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, want)
	for i := 0; i < len(raw); {
		m := raw[i]
		i++
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if run == 0 || run > uint64(want-len(out)) {
			return nil, fmt.Errorf("run of %d at %d overflows %d materials", run, i, want)
		}
		out = append(out, bytes.Repeat([]byte{m}, int(run))...)
	}
	if len(out) != want {
		return nil, fmt.Errorf("decoded %d materials, want %d", len(out), want)
	}
	return out, nil
}
