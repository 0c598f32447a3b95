package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nuha.dev/livetrace/internal/config"
	"nuha.dev/livetrace/internal/geo/sim"
	"nuha.dev/livetrace/internal/identity"
	"nuha.dev/livetrace/internal/link/wstransport"
	"nuha.dev/livetrace/internal/relay"
	"nuha.dev/livetrace/internal/session"
	"nuha.dev/livetrace/internal/web"
)

var levels = map[string]log.Level{
	"trace": log.TraceLevel,
	"debug": log.DebugLevel,
	"info":  log.InfoLevel,
	"warn":  log.WarnLevel,
	"error": log.ErrorLevel,
}

func main() {
	flags := pflag.NewFlagSet("livetrace", pflag.ExitOnError)
	file := flags.String("config", "", "config file")
	flags.String("page_url", "", "url the client is served from, https selects wss")
	flags.String("identity_file", "", "file holding the participant id")
	flags.Duration("retry_delay", 0, "delay before reconnecting")
	flags.String("view_addr", "", "address of the map view, empty disables it")
	flags.String("nats_url", "", "nats server for status relay, empty disables it")
	flags.String("log_level", "", "trace, debug, info, warn or error")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		log.Fatal().Err(err).Msg("unable to bind flags")
	}
	conf, err := config.Load(v, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}
	log.DefaultLogger.Level = levels[conf.LogLevel]
	if lvl, err := zerolog.ParseLevel(conf.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	self, err := identity.Open(conf.IdentityFile).ParticipantID()
	if err != nil {
		log.Fatal().Err(err).Str("file", conf.IdentityFile).Msg("unable to load identity")
	}
	log.Info().Str("self", self).Str("page_url", conf.PageURL).Msg("starting livetrace")

	view := web.NewMap(0)
	sess, err := session.New(session.Config{
		Self:       self,
		PageURL:    conf.PageURL,
		RetryDelay: conf.RetryDelay,
		Transport: wstransport.Config{
			DialTimeout:  conf.DialTimeout,
			WriteTimeout: conf.WriteTimeout,
			ReadLimit:    conf.ReadLimit,
			SendBuffer:   conf.SendBuffer,
		},
		Node: 1,
	}, view)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create session")
	}

	if conf.NatsURL != "" {
		nc, err := relay.Dial(conf.NatsURL, "livetrace-"+self)
		if err != nil {
			log.Warn().Err(err).Msg("status relay disabled")
		} else {
			defer nc.Close()
			relay.New(nc, conf.NatsSubject, self).Attach(sess.Bus)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.ViewAddr != "" {
		srv := web.NewServer(conf.ViewAddr, sess.Loop, view, sess.Probe)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("view server stopped")
				stop()
			}
		}()
	}

	walker := sim.NewWalker(sim.Config{
		Lat:      conf.Sim.Lat,
		Lng:      conf.Sim.Lng,
		Spread:   conf.Sim.Spread,
		Interval: conf.Sim.Interval,
		Seed:     conf.Sim.Seed,
	})
	sess.Run(ctx, walker)
}
