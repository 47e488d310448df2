package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location relative to the working dir.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                      string  `yaml:"port"`
	LogLevel                  string  `yaml:"logLevel"`
	DatabaseURL               string  `yaml:"databaseURL"`
	RedisAddr                 string  `yaml:"redisAddr"`
	RedisPassword             string  `yaml:"redisPassword"`
	WhatsAppToken             string  `yaml:"whatsappToken"`
	WhatsAppPhoneID           string  `yaml:"whatsappPhoneId"`
	WhatsAppVerifyToken       string  `yaml:"whatsappVerifyToken"`
	WhatsAppAPIBaseURL        string  `yaml:"whatsappApiBaseUrl"`
	AIBaseURL                 string  `yaml:"aiBaseUrl"`
	AIAPIKey                  string  `yaml:"aiApiKey"`
	AIChatModel               string  `yaml:"aiChatModel"`
	AIImageModel              string  `yaml:"aiImageModel"`
	AIAudioModel              string  `yaml:"aiAudioModel"`
	MinioEndpoint             string  `yaml:"minioEndpoint"`
	MinioAccessKey            string  `yaml:"minioAccessKey"`
	MinioSecretKey            string  `yaml:"minioSecretKey"`
	MinioBucket               string  `yaml:"minioBucket"`
	MinioPublicBaseURL        string  `yaml:"minioPublicBaseUrl"`
	MinioUseSSL               bool    `yaml:"minioUseSsl"`
	QueueStream               string  `yaml:"queueStream"`
	QueueGroup                string  `yaml:"queueGroup"`
	QueueConcurrency          int     `yaml:"queueConcurrency"`
	QueueMaxRetries           int     `yaml:"queueMaxRetries"`
	QueueRetryDelaySeconds    int     `yaml:"queueRetryDelaySeconds"`
	WebhookRateLimit          int     `yaml:"webhookRateLimit"`
	WebhookRateWindowSeconds  int     `yaml:"webhookRateWindowSeconds"`
	DedupeTTLSeconds          int     `yaml:"dedupeTtlSeconds"`
	VoiceConfidenceThreshold  float64 `yaml:"voiceConfidenceThreshold"`
	AdminJWTPublicKeyPath     string  `yaml:"adminJwtPublicKeyPath"`
	AdminJWTAllowedIssuers    string  `yaml:"adminJwtAllowedIssuers"`
	AdminJWTLeewaySeconds     int     `yaml:"adminJwtLeewaySeconds"`
	TrustedProxyCIDRs         string  `yaml:"trustedProxyCidrs"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("WHATSAPP_TOKEN"); v != "" {
		cfg.WhatsAppToken = v
	}
	if v := os.Getenv("WHATSAPP_PHONE_ID"); v != "" {
		cfg.WhatsAppPhoneID = v
	}
	if v := os.Getenv("WHATSAPP_VERIFY_TOKEN"); v != "" {
		cfg.WhatsAppVerifyToken = v
	}
	if v := os.Getenv("WHATSAPP_API_BASE_URL"); v != "" {
		cfg.WhatsAppAPIBaseURL = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.AIBaseURL = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AIAPIKey = v
	}
	if v := os.Getenv("AI_CHAT_MODEL"); v != "" {
		cfg.AIChatModel = v
	}
	if v := os.Getenv("AI_IMAGE_MODEL"); v != "" {
		cfg.AIImageModel = v
	}
	if v := os.Getenv("AI_AUDIO_MODEL"); v != "" {
		cfg.AIAudioModel = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_PUBLIC_BASE_URL"); v != "" {
		cfg.MinioPublicBaseURL = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("BOT_QUEUE_STREAM"); v != "" {
		cfg.QueueStream = v
	}
	if v := os.Getenv("BOT_QUEUE_GROUP"); v != "" {
		cfg.QueueGroup = v
	}
	if v := os.Getenv("BOT_QUEUE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueConcurrency = n
		}
	}
	if v := os.Getenv("BOT_QUEUE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueMaxRetries = n
		}
	}
	if v := os.Getenv("BOT_QUEUE_RETRY_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueRetryDelaySeconds = n
		}
	}
	if v := os.Getenv("BOT_WEBHOOK_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WebhookRateLimit = n
		}
	}
	if v := os.Getenv("BOT_WEBHOOK_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WebhookRateWindowSeconds = n
		}
	}
	if v := os.Getenv("BOT_DEDUPE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DedupeTTLSeconds = n
		}
	}
	if v := os.Getenv("BOT_VOICE_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.VoiceConfidenceThreshold = f
		}
	}
	if v := os.Getenv("BOT_ADMIN_JWT_PUBLIC_KEY_PATH"); v != "" {
		cfg.AdminJWTPublicKeyPath = v
	}
	if v := os.Getenv("BOT_ADMIN_JWT_ALLOWED_ISSUERS"); v != "" {
		cfg.AdminJWTAllowedIssuers = v
	}
	if v := os.Getenv("BOT_ADMIN_JWT_LEEWAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AdminJWTLeewaySeconds = n
		}
	}
	if v := os.Getenv("BOT_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = v
	}

	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.WhatsAppAPIBaseURL == "" {
		cfg.WhatsAppAPIBaseURL = "https://graph.facebook.com/v19.0"
	}
	if cfg.QueueStream == "" {
		cfg.QueueStream = "listing:approved"
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = "notifier"
	}
	if cfg.QueueConcurrency <= 0 {
		cfg.QueueConcurrency = 2
	}
	if cfg.WebhookRateLimit <= 0 {
		cfg.WebhookRateLimit = 60
	}
	if cfg.WebhookRateWindowSeconds <= 0 {
		cfg.WebhookRateWindowSeconds = 60
	}
	if cfg.DedupeTTLSeconds <= 0 {
		cfg.DedupeTTLSeconds = 24 * 60 * 60
	}
	if cfg.VoiceConfidenceThreshold <= 0 {
		cfg.VoiceConfidenceThreshold = 0.7
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.WhatsAppToken == "" {
		return errors.New("config: whatsappToken is required (set in config.yaml or WHATSAPP_TOKEN)")
	}
	if cfg.WhatsAppPhoneID == "" {
		return errors.New("config: whatsappPhoneId is required (set in config.yaml or WHATSAPP_PHONE_ID)")
	}
	if cfg.WhatsAppVerifyToken == "" {
		return errors.New("config: whatsappVerifyToken is required (set in config.yaml or WHATSAPP_VERIFY_TOKEN)")
	}
	if cfg.AIBaseURL == "" {
		return errors.New("config: aiBaseUrl is required (set in config.yaml or AI_BASE_URL)")
	}
	if cfg.AIAPIKey == "" {
		return errors.New("config: aiApiKey is required (set in config.yaml or AI_API_KEY)")
	}
	if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
		return errors.New("config: minio endpoint and credentials are required (set in config.yaml or MINIO_* env)")
	}
	if cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required (set in config.yaml or MINIO_BUCKET)")
	}
	if strings.TrimSpace(cfg.AdminJWTPublicKeyPath) == "" {
		return errors.New("config: adminJwtPublicKeyPath is required (set in config.yaml or BOT_ADMIN_JWT_PUBLIC_KEY_PATH)")
	}
	if cfg.VoiceConfidenceThreshold > 1 {
		return errors.New("config: voiceConfidenceThreshold must be between 0 and 1")
	}
	return nil
}

// AllowedIssuers splits the comma separated issuer list.
func (cfg FileConfig) AllowedIssuers() []string {
	if strings.TrimSpace(cfg.AdminJWTAllowedIssuers) == "" {
		return nil
	}
	parts := strings.Split(cfg.AdminJWTAllowedIssuers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TrustedProxies splits the comma separated CIDR list.
func (cfg FileConfig) TrustedProxies() []string {
	if strings.TrimSpace(cfg.TrustedProxyCIDRs) == "" {
		return nil
	}
	parts := strings.Split(cfg.TrustedProxyCIDRs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
