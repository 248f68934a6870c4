package capture

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/mwirth/ironlog/pkg/audio"
)

// wavHeaderSize is the size of a canonical PCM WAV header.
const wavHeaderSize = 44

// writeWAV writes pcm (16-bit signed little-endian) as a canonical WAV file.
// Header and data are assembled in memory and written with a single
// os.WriteFile call so the clip is either fully present or fully absent.
func writeWAV(path string, format audio.Format, pcm []byte) error {
	buf := make([]byte, wavHeaderSize+len(pcm))

	byteRate := format.BytesPerSecond()
	blockAlign := format.Channels * 2

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[wavHeaderSize:], pcm)

	return os.WriteFile(path, buf, 0o644)
}

// ReadWAV reads a canonical PCM WAV file and returns its format and raw
// sample data. Only 16-bit PCM is accepted.
func ReadWAV(path string) (audio.Format, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return audio.Format{}, nil, err
	}
	if len(data) < wavHeaderSize {
		return audio.Format{}, nil, fmt.Errorf("capture: %q: truncated WAV header (%d bytes)", path, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return audio.Format{}, nil, fmt.Errorf("capture: %q: not a RIFF/WAVE file", path)
	}
	if fmtTag := binary.LittleEndian.Uint16(data[20:22]); fmtTag != 1 {
		return audio.Format{}, nil, fmt.Errorf("capture: %q: unsupported WAV format tag %d (want PCM)", path, fmtTag)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		return audio.Format{}, nil, fmt.Errorf("capture: %q: unsupported bit depth %d (want 16)", path, bits)
	}

	format := audio.Format{
		SampleRate: int(binary.LittleEndian.Uint32(data[24:28])),
		Channels:   int(binary.LittleEndian.Uint16(data[22:24])),
	}
	dataLen := int(binary.LittleEndian.Uint32(data[40:44]))
	pcm := data[wavHeaderSize:]
	if dataLen < len(pcm) {
		pcm = pcm[:dataLen]
	}
	return format, pcm, nil
}
