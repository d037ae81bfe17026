package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/frank005/broadcastaway-sub000/internal/adapters/http"
	"github.com/frank005/broadcastaway-sub000/internal/adapters/msg"
	"github.com/frank005/broadcastaway-sub000/internal/adapters/rest"
	"github.com/frank005/broadcastaway-sub000/internal/adapters/rtc"
	"github.com/frank005/broadcastaway-sub000/internal/app/orch"
	"github.com/frank005/broadcastaway-sub000/internal/config"
	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	backend := rest.NewClient(cfg.BackendURL)
	tokens := rest.NewTokenClient(cfg.BackendURL)
	converters := rest.NewConverterClient(cfg.BackendURL)
	captions := rest.NewCaptionClient(cfg.BackendURL)

	media := rtc.NewMediaConn(rtc.DefaultConfig())
	messaging := msg.NewWSMessaging(cfg.MessagingWS, cfg.PingPeriod)

	// Media negotiation rides the messaging gateway: offers and remote
	// candidates come in, the answer and local candidates go back out.
	messaging.OnOffer(func(offer webrtc.SessionDescription) {
		answer, err := media.ApplyOfferAndCreateAnswer(offer)
		if err != nil {
			log.Error().Err(err).Msg("media negotiation failed")
			return
		}
		if err := messaging.SendAnswer(context.Background(), *answer); err != nil {
			log.Error().Err(err).Msg("answer relay failed")
		}
	})
	messaging.OnRemoteCandidate(func(ci webrtc.ICECandidateInit) {
		if err := media.AddRemoteCandidate(ci); err != nil {
			log.Warn().Err(err).Msg("remote candidate rejected")
		}
	})
	media.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		if err := messaging.SendCandidate(context.Background(), ci); err != nil {
			log.Warn().Err(err).Msg("candidate relay failed")
		}
	})

	// Captures resolve their identity lazily; it only exists after a join.
	var o *orch.Orchestrator
	camera := rtc.NewCameraCapture(func() domain.MediaID {
		return o.Me().MediaID
	})
	screen := rtc.NewScreenCapture(func() domain.MediaID {
		return domain.DeriveMediaID(domain.ScreenIdentity(o.Me().MessagingID))
	})

	o = orch.New(orch.Deps{
		Media:         media,
		NewMedia:      func() core.MediaSession { return rtc.NewMediaConn(rtc.DefaultConfig()) },
		Messaging:     messaging,
		Tokens:        tokens,
		Converters:    converters,
		Captions:      captions,
		Evictor:       backend,
		Capture:       camera,
		ScreenCapture: screen,
		CanvasW:       cfg.CanvasWidth,
		CanvasH:       cfg.CanvasHeight,
	})

	r := router.SetupRouter(cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Broadcast session controller started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := o.Leave(leaveCtx); err != nil {
		log.Error().Err(err).Msg("leave on shutdown")
	}
	leaveCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
