package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/audio"
	"github.com/godilite/booth-feedback/internal/client"
	"github.com/godilite/booth-feedback/internal/config"
	"github.com/godilite/booth-feedback/internal/dashboard"
	"github.com/godilite/booth-feedback/internal/kiosk"
	"github.com/godilite/booth-feedback/internal/recording"
	"github.com/godilite/booth-feedback/internal/submission"
	"github.com/godilite/booth-feedback/pkg/fetch"
)

// Kiosk is the booth terminal: the form, the dashboard and the microphone.
type Kiosk struct {
	cfg      config.KioskConfig
	logger   *zap.Logger
	ui       *kiosk.Kiosk
	registry *prometheus.Registry
}

// NewKiosk wires the kiosk against the configured backend.
func NewKiosk(cfg *config.Config, logger *zap.Logger, out io.Writer) *Kiosk {
	kc := cfg.Kiosk
	reg := prometheus.NewRegistry()

	fetcher := fetch.New(
		fetch.WithMaxRetries(kc.MaxRetries),
		fetch.WithBaseDelay(kc.BaseDelay),
		fetch.WithLogger(logger),
		fetch.WithMetrics(fetch.NewMetrics(reg)),
	)
	api := client.New(fetcher, kc.BackendURL)

	ui := kiosk.New(
		submission.NewOrchestrator(api, logger),
		dashboard.NewLoader(api, logger),
		kc.Identity,
		out,
		logger,
	)
	ui.UseRecorder(recording.NewController(
		audio.NewFFMPEGCapture(kc.Audio.Command),
		api,
		ui,
		recording.Config{Audio: recording.AudioConfig{
			InputFormat: kc.Audio.InputFormat,
			InputDevice: kc.Audio.InputDevice,
			SampleRate:  kc.Audio.SampleRate,
			Channels:    kc.Audio.Channels,
		}},
		logger,
	))

	return &Kiosk{cfg: kc, logger: logger, ui: ui, registry: reg}
}

// Run drives the terminal until in is exhausted, the user quits or ctx ends.
func (k *Kiosk) Run(ctx context.Context, in io.Reader) error {
	k.logger.Info("kiosk starting", zap.String("backend_url", k.cfg.BackendURL))

	if k.cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              k.cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(k.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				k.logger.Warn("kiosk metrics listener failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err := k.ui.Run(ctx, in)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	k.logger.Info("kiosk stopped")
	return err
}
