package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"github.com/typeroyale/typeroyale/internal/config"
	"github.com/typeroyale/typeroyale/internal/content"
	"github.com/typeroyale/typeroyale/internal/game"
	"github.com/typeroyale/typeroyale/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`typeroyale - Real-time multiplayer typing race server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                         Port to listen on (default: 8080)
  DB_PATH                      SQLite database path (default: ./typeroyale.db)
  SPEED_MODEL                  "chars" or "wpm" (default: chars)
  COUNTDOWN_SECONDS            Pre-race countdown duration (default: 10)
  MIN_PLAYERS                  Players required to start (default: 2)
  MAX_ROOM_PLAYERS             Room capacity (default: 4)
  AUTO_START_PLAYERS           Auto-start countdown at this many players (0 = manual)
  MONSTER_ENABLED              Enable the pursuing monster (default: true)
  MONSTER_START_DELAY_SECONDS  Monster start delay after gameStart (default: 5)
  MONSTER_SAFE_SECONDS         Grace window after the monster starts (default: 3)
  MONSTER_HITBOX_RADIUS        Capture distance in track percent (default: 1.5)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("typeroyale %s\n", version)
		return
	}

	// Config
	cfg := config.FromEnv()

	// Determine port
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Content store
	store, err := content.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open content store: %v", err)
	}
	defer store.Close()

	// Socket server + room registry + race engine
	sock := ws.New()
	rm := game.NewRegistry(gameOptions(cfg), sock, store)
	sock.SetRegistry(rm)
	io := sock.Mount(r)
	defer io.Close()

	engine := game.NewEngine(rm)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	// Room introspection
	r.GET("/api/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, rm.List())
	})
	r.GET("/api/rooms/:id", func(c *gin.Context) {
		for _, summary := range rm.List() {
			if summary.Name == c.Param("id") {
				c.JSON(http.StatusOK, summary)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	})

	// Content pass-throughs
	r.GET("/texts", func(c *gin.Context) {
		lang := c.Query("language")
		difficulty := c.Query("difficulty")
		if lang != "" && difficulty != "" {
			ids, err := store.TextIDsByLanguageAndDifficulty(c.Request.Context(), lang, difficulty)
			if errors.Is(err, content.ErrNoContent) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no texts for language"})
				return
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "content lookup failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ids": ids})
			return
		}
		texts, err := store.AllTexts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "content lookup failed"})
			return
		}
		c.JSON(http.StatusOK, texts)
	})
	r.GET("/texts/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid text id"})
			return
		}
		text, err := store.TextByID(c.Request.Context(), id)
		if errors.Is(err, content.ErrNoContent) {
			c.JSON(http.StatusNotFound, gin.H{"error": "text not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "content lookup failed"})
			return
		}
		c.JSON(http.StatusOK, text)
	})
	r.GET("/words/:language", func(c *gin.Context) {
		word, err := store.RandomWordByLanguage(c.Request.Context(), c.Param("language"))
		if errors.Is(err, content.ErrNoContent) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no words for language"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "content lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"language": c.Param("language"), "word": word})
	})

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

func gameOptions(cfg config.Config) game.Options {
	opts := game.DefaultOptions()
	opts.CountdownSeconds = cfg.CountdownSeconds
	opts.MinPlayers = cfg.MinPlayers
	opts.MaxPlayers = cfg.MaxPlayers
	opts.AutoStartPlayers = cfg.AutoStartPlayers
	opts.MonsterEnabled = cfg.MonsterEnabled
	opts.MonsterDelay = cfg.MonsterDelay
	opts.MonsterSafeTime = cfg.MonsterSafeTime
	opts.HitboxRadius = cfg.HitboxRadius
	if cfg.SpeedModel == string(game.ModelWPM) {
		opts.Model = game.ModelWPM
	}
	return opts
}
