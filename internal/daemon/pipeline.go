package daemon

import (
	"log/slog"

	"rawwatch/internal/config"
	"rawwatch/internal/convert"
	"rawwatch/internal/deps"
	"rawwatch/internal/jpegenc"
	"rawwatch/internal/rawdecode"
	"rawwatch/internal/scan"
)

// Pipeline holds the conversion components built from a config.
type Pipeline struct {
	Converter *convert.Converter
	Scanner   *scan.Scanner
}

// Option customizes pipeline construction.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	decoder  rawdecode.Decoder
	encoder  jpegenc.Encoder
	recorder convert.Recorder
}

// WithDecoder replaces the command-line decoder.
func WithDecoder(decoder rawdecode.Decoder) Option {
	return func(o *pipelineOptions) {
		o.decoder = decoder
	}
}

// WithEncoder replaces the JPEG file encoder.
func WithEncoder(encoder jpegenc.Encoder) Option {
	return func(o *pipelineOptions) {
		o.encoder = encoder
	}
}

// WithRecorder attaches an outcome recorder, typically a ledger store.
func WithRecorder(recorder convert.Recorder) Option {
	return func(o *pipelineOptions) {
		o.recorder = recorder
	}
}

// NewPipeline builds the converter and scanner described by cfg. The CLI's
// one-shot commands and the daemon share it so both convert identically.
func NewPipeline(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	o := pipelineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.decoder == nil {
		// An unresolved binary is still handed over so each conversion
		// reports the lookup failure.
		bin, _ := deps.Resolve(cfg.Decoder.Binary)
		o.decoder = rawdecode.NewCommandDecoder(bin.Executable(), cfg.DecoderTimeout())
	}
	if o.encoder == nil {
		o.encoder = jpegenc.FileEncoder{}
	}

	convOpts := []convert.Option{
		convert.WithProfile(rawdecode.DefaultProfile()),
		convert.WithQuality(cfg.Encoder.Quality),
		convert.WithLogger(logger),
	}
	if o.recorder != nil {
		convOpts = append(convOpts, convert.WithRecorder(o.recorder))
	}
	converter := convert.New(o.decoder, o.encoder, cfg.Paths.OutputDir, convOpts...)
	return &Pipeline{
		Converter: converter,
		Scanner:   scan.New(converter, logger),
	}
}
