package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	plog "github.com/phuslu/log"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nuha.dev/livetrace/internal/config"
	"nuha.dev/livetrace/internal/geo/sim"
	"nuha.dev/livetrace/internal/link/wstransport"
	"nuha.dev/livetrace/internal/session"
	"nuha.dev/livetrace/internal/web"
)

type totals struct {
	connected   int
	attempts    uint64
	messagesIn  uint64
	messagesOut uint64
	dropped     uint64
}

func main() {
	flags := pflag.NewFlagSet("loadgen", pflag.ExitOnError)
	file := flags.String("config", "", "config file")
	clients := flags.Int("clients", 200, "number of concurrent clients")
	prefix := flags.String("prefix", "sim", "participant id prefix")
	report := flags.Duration("report", 5*time.Second, "summary interval")
	flags.String("page_url", "", "url the clients are served from, https selects wss")
	flags.Duration("retry_delay", 0, "delay before reconnecting")
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
	if lvl, err := zerolog.ParseLevel(conf.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	// engine logs only what needs attention, the summary covers the rest
	plog.DefaultLogger.Level = plog.WarnLevel

	logger := log.With().Str("module", "loadgen").Logger()
	logger.Info().Int("clients", *clients).Dur("interval", conf.Sim.Interval).Msg("starting loadgen")
	logger.Info().Float64("lat", conf.Sim.Lat).Float64("lng", conf.Sim.Lng).Float64("spread", conf.Sim.Spread).Msg("center")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := make([]*session.Session, 0, *clients)
	for i := 0; i < *clients; i++ {
		s, err := session.New(session.Config{
			Self:       fmt.Sprintf("%s-%d", *prefix, i),
			PageURL:    conf.PageURL,
			RetryDelay: conf.RetryDelay,
			Transport: wstransport.Config{
				DialTimeout:  conf.DialTimeout,
				WriteTimeout: conf.WriteTimeout,
				ReadLimit:    conf.ReadLimit,
				SendBuffer:   conf.SendBuffer,
			},
			Node: uint64(i + 1),
		}, web.NewMap(0))
		if err != nil {
			logger.Fatal().Err(err).Int("client", i).Msg("unable to create session")
		}
		sessions = append(sessions, s)
	}

	wg := sync.WaitGroup{}
	for i, s := range sessions {
		seed := conf.Sim.Seed
		if seed != 0 {
			seed += int64(i)
		}
		walker := sim.NewWalker(sim.Config{
			Lat:      conf.Sim.Lat,
			Lng:      conf.Sim.Lng,
			Spread:   conf.Sim.Spread,
			Interval: conf.Sim.Interval,
			Seed:     seed,
		})
		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			s.Run(ctx, walker)
		}(s)
	}

	ticker := time.NewTicker(*report)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("stopping loadgen ...")
			wg.Wait()
			logger.Info().Msg("all clients stopped")
			return
		case <-ticker.C:
			t := summarize(ctx, sessions)
			logger.Info().
				Int("connected", t.connected).
				Int("clients", len(sessions)).
				Uint64("attempts", t.attempts).
				Uint64("messages_in", t.messagesIn).
				Uint64("messages_out", t.messagesOut).
				Uint64("dropped", t.dropped).
				Msg("summary")
		}
	}
}

func summarize(ctx context.Context, sessions []*session.Session) totals {
	var t totals
	for _, s := range sessions {
		var st web.Status
		if err := s.Loop.Do(ctx, func() { st = s.Probe() }); err != nil {
			continue
		}
		if st.State == "Connected" {
			t.connected++
		}
		t.attempts += st.Stats.Attempts
		t.messagesIn += st.Stats.MessagesIn
		t.messagesOut += st.Stats.MessagesOut
		t.dropped += st.Stats.Dropped
	}
	return t
}
