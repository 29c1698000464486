package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza la configuración cargada del entorno.
type Config struct {
	Port          int
	DBDSN         string
	RedisURL      string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	JWTSecret     string
	AllowOrigins  []string

	// ZonaHoraria es la zona civil fija de la organización; todas las
	// comparaciones de horario laboral y las ventanas de barrido la usan,
	// sin importar dónde corre el proceso.
	ZonaHoraria string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	CronSecret      string

	// SweepInterval habilita el barrido periódico interno cuando es > 0.
	// Debe ser menor o igual al ancho de la banda de captura (10m).
	SweepInterval time.Duration

	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig

	Storage StorageConfig
}

// RateLimitConfig representa límites simples de throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// StorageConfig describe el almacenamiento de archivos (actas).
type StorageConfig struct {
	Provider    string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// Load carga variables de entorno y aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválido")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obligatorio")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obligatorio")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET debe tener al menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.ZonaHoraria = strings.TrimSpace(getEnv("ZONA_HORARIA", "America/La_Paz"))
	if _, err := time.LoadLocation(cfg.ZonaHoraria); err != nil {
		return nil, errors.New("ZONA_HORARIA inválida")
	}

	cfg.VAPIDPublicKey = strings.TrimSpace(getEnv("VAPID_PUBLIC_KEY", ""))
	cfg.VAPIDPrivateKey = strings.TrimSpace(getEnv("VAPID_PRIVATE_KEY", ""))
	cfg.VAPIDSubject = strings.TrimSpace(getEnv("VAPID_SUBJECT", ""))
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" || cfg.VAPIDSubject == "" {
		return nil, errors.New("VAPID_PUBLIC_KEY, VAPID_PRIVATE_KEY y VAPID_SUBJECT son obligatorios")
	}

	cfg.CronSecret = strings.TrimSpace(getEnv("CRON_SECRET", ""))
	if cfg.CronSecret == "" {
		return nil, errors.New("CRON_SECRET obligatorio")
	}

	sweepInterval, err := parseDurationEnv("SWEEP_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	if sweepInterval > 10*time.Minute {
		return nil, errors.New("SWEEP_INTERVAL no puede superar la banda de captura (10m)")
	}
	cfg.SweepInterval = sweepInterval

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.Storage = StorageConfig{
		Provider:    strings.TrimSpace(getEnv("STORAGE_PROVIDER", "noop")),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "auto"),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),
	}

	return cfg, nil
}

// Location resuelve la zona civil ya validada en Load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ZonaHoraria)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
