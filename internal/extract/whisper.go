package extract

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nosy/internal/command"
	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/progress"
	"github.com/hyperifyio/nosy/internal/validate"
)

// WhisperSampleRate is the rate the speech model expects.
const WhisperSampleRate = 16000

// wavFormatFloat is the WAVE_FORMAT_IEEE_FLOAT format tag.
const wavFormatFloat = 3

// Whisper transcribes speech. ffmpeg decodes any audio or video container to
// mono 16 kHz float samples, which whisper.cpp then transcribes.
type Whisper struct {
	ModelPath string
	// Language passed to whisper-cli; empty means auto-detect.
	Language string
	Runner   command.Runner
}

func (w *Whisper) Extract(ctx context.Context, req Request) (string, error) {
	model, err := validate.WhisperModelPath(w.ModelPath)
	if err != nil {
		return "", err
	}
	ffmpeg, err := validate.CommandExecutable(validate.FFmpegBin, validate.FFmpegInstallHint)
	if err != nil {
		return "", err
	}
	cli, err := validate.CommandExecutable(validate.WhisperCLIBin, validate.WhisperInstallHint)
	if err != nil {
		return "", err
	}
	sink := progress.Or(req.Progress)

	sink.Update("Decoding audio")
	samples, err := w.decode(ctx, ffmpeg, req.ContentPath)
	if err != nil {
		return "", err
	}
	if samples.NumFrames() == 0 {
		return "", errs.Join(errs.ErrExtractionFailed, "decoded audio is empty", nil)
	}
	log.Debug().Int("samples", samples.NumFrames()).Float64("seconds", float64(samples.NumFrames())/WhisperSampleRate).Msg("audio decoded")

	// The resampled audio goes to the system temp dir; the workdir only
	// ever holds raw and ext.
	wavPath, err := writeTempWAV(samples)
	if err != nil {
		return "", errs.Join(errs.ErrIO, "write resampled audio", err)
	}
	defer os.Remove(wavPath)

	sink.Update("Transcribing audio")
	lang := w.Language
	if lang == "" {
		lang = "auto"
	}
	cmd := command.New(cli).
		Arg("-m").Arg(model).
		Arg("-f").Arg(wavPath).
		Arg("-l").Arg(lang).
		Arg("--no-timestamps").
		Arg("--no-prints")
	res, err := w.Runner.Run(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errs.Join(errs.ErrExtractionFailed, "whisper failed to start", err)
	}
	if !res.Success() {
		return "", errs.Join(errs.ErrExtractionFailed, "whisper failed: "+strings.TrimSpace(string(res.Stderr)), nil)
	}
	return writeText(req.WorkDir, "whisper", joinSegments(string(res.Stdout)))
}

func (w *Whisper) decode(ctx context.Context, ffmpeg, path string) (*audio.Float32Buffer, error) {
	cmd := command.New(ffmpeg).
		Arg("-nostdin").
		Arg("-hide_banner").
		Arg("-loglevel").Arg("error").
		Arg("-i").Arg(path).
		Arg("-vn").
		Arg("-ac").Arg("1").
		Arg("-ar").Arg(fmt.Sprint(WhisperSampleRate)).
		Arg("-f").Arg("f32le").
		Arg("pipe:1")
	res, err := w.Runner.Run(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Join(errs.ErrExtractionFailed, "audio decoder failed to start", err)
	}
	if !res.Success() {
		return nil, errs.Join(errs.ErrExtractionFailed, "failed to decode audio: "+strings.TrimSpace(string(res.Stderr)), nil)
	}
	return &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: WhisperSampleRate},
		Data:           decodeF32LE(res.Stdout),
		SourceBitDepth: 32,
	}, nil
}

// decodeF32LE reads little-endian float32 samples; a trailing partial sample
// is dropped.
func decodeF32LE(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// writeTempWAV stores samples unchanged as mono 32-bit float WAV at
// WhisperSampleRate and returns the temp file path.
func writeTempWAV(samples *audio.Float32Buffer) (string, error) {
	f, err := os.CreateTemp("", "nosy-whisper-*.wav")
	if err != nil {
		return "", err
	}
	if err := writeWAV(f, samples); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeWAV(f *os.File, samples *audio.Float32Buffer) error {
	bf := &bufferedFile{Writer: bufio.NewWriterSize(f, 64<<10), f: f}
	enc := wav.NewEncoder(bf, samples.Format.SampleRate, 32, samples.Format.NumChannels, wavFormatFloat)
	for _, s := range samples.Data {
		if err := enc.WriteFrame(s); err != nil {
			return err
		}
	}
	return enc.Close()
}

// bufferedFile batches the encoder's per-sample writes. Seek flushes first so
// the header rewrite on Close lands after the data.
type bufferedFile struct {
	*bufio.Writer
	f *os.File
}

func (b *bufferedFile) Seek(offset int64, whence int) (int64, error) {
	if err := b.Flush(); err != nil {
		return 0, err
	}
	return b.f.Seek(offset, whence)
}

// joinSegments keeps the non-empty transcript lines.
func joinSegments(out string) string {
	var segs []string
	for _, line := range strings.Split(out, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			segs = append(segs, s)
		}
	}
	return strings.Join(segs, "\n")
}
