package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	DBPath           string
	SpeedModel       string // "chars" or "wpm"
	CountdownSeconds int
	MinPlayers       int
	MaxPlayers       int
	AutoStartPlayers int
	MonsterEnabled   bool
	MonsterDelay     time.Duration
	MonsterSafeTime  time.Duration
	HitboxRadius     float64
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DBPath = getenv("DB_PATH", "./typeroyale.db")
	c.SpeedModel = getenv("SPEED_MODEL", "chars")
	c.CountdownSeconds = getint("COUNTDOWN_SECONDS", 10)
	c.MinPlayers = getint("MIN_PLAYERS", 2)
	c.MaxPlayers = getint("MAX_ROOM_PLAYERS", 4)
	c.AutoStartPlayers = getint("AUTO_START_PLAYERS", 0)
	c.MonsterEnabled = getenv("MONSTER_ENABLED", "true") == "true"
	c.MonsterDelay = time.Duration(getint("MONSTER_START_DELAY_SECONDS", 5)) * time.Second
	c.MonsterSafeTime = time.Duration(getint("MONSTER_SAFE_SECONDS", 3)) * time.Second
	c.HitboxRadius = getfloat("MONSTER_HITBOX_RADIUS", 1.5)
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
