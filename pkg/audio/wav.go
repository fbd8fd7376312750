// Package audio packs raw PCM into canonical WAV containers and carries the
// small set of signal-level helpers (RMS/energy) the orchestrator and
// ambient listener use for noise-baseline tracking and echo correlation.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Format describes the linear-PCM layout packed into a WAV container.
// The two sample rates that matter for this system are 16 kHz (microphone
// capture) and 24 kHz (TTS injection); channels/bit depth are normally 1/16.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultMicFormat is the canonical capture format for client-uploaded audio.
func DefaultMicFormat() Format { return Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16} }

// DefaultTTSFormat is the canonical format for synthesized speech.
func DefaultTTSFormat() Format { return Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16} }

// NewWavBuffer packs raw PCM into a canonical 44-byte-header RIFF/WAVE
// container at the given sample rate, assuming mono 16-bit PCM. Kept for
// callers that only care about sample rate (most STT adapters).
func NewWavBuffer(pcm []byte, sampleRate int) []byte {
	return Pack(pcm, Format{SampleRate: sampleRate, Channels: 1, BitsPerSample: 16})
}

// Pack builds a canonical RIFF/WAVE header for linear PCM followed by the
// PCM payload.
func Pack(pcm []byte, format Format) []byte {
	buf := new(bytes.Buffer)

	byteRate := format.SampleRate * format.Channels * format.BitsPerSample / 8
	blockAlign := format.Channels * format.BitsPerSample / 8

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(format.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(format.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(format.BitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// ParseHeader reads a canonical 44-byte RIFF/WAVE header and returns the
// format it describes plus the PCM payload that follows it. It is the
// inverse of Pack/NewWavBuffer: packing then parsing must yield the
// original sample rate, channel count, bit depth, and data length.
func ParseHeader(wav []byte) (Format, []byte, error) {
	if len(wav) < 44 {
		return Format{}, nil, fmt.Errorf("audio: wav header truncated (%d bytes)", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return Format{}, nil, fmt.Errorf("audio: not a RIFF/WAVE container")
	}
	if string(wav[12:16]) != "fmt " {
		return Format{}, nil, fmt.Errorf("audio: missing fmt chunk")
	}

	channels := int(binary.LittleEndian.Uint16(wav[22:24]))
	sampleRate := int(binary.LittleEndian.Uint32(wav[24:28]))
	bitsPerSample := int(binary.LittleEndian.Uint16(wav[34:36]))

	if string(wav[36:40]) != "data" {
		return Format{}, nil, fmt.Errorf("audio: missing data chunk")
	}
	dataLen := binary.LittleEndian.Uint32(wav[40:44])
	if int(dataLen) > len(wav)-44 {
		return Format{}, nil, fmt.Errorf("audio: data chunk length %d exceeds buffer", dataLen)
	}

	pcm := make([]byte, dataLen)
	copy(pcm, wav[44:44+int(dataLen)])

	return Format{SampleRate: sampleRate, Channels: channels, BitsPerSample: bitsPerSample}, pcm, nil
}
