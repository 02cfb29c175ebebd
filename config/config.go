package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// JWT
	JWTSecret    string
	JWTExpiresIn time.Duration

	// AWS
	AWSRegion    string
	ExportBucket string

	// Server
	Port   string
	AppEnv string

	// Logging
	LogLevel string
	LogFile  string

	// Scheduling
	DefaultTimezone    string
	StrictOverlapGuard bool
	ReminderCron       string
	UpcomingCron       string

	// LINE
	LineChannelSecret string
	LineChannelToken  string
	LineGroupID       string

	// Feature Toggles
	UseRedisNotifications bool
	SkipMigrate           bool
	SeedData              bool
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=UTC"
}

var AppConfig *Config

func LoadConfig() {
	useSSM := getEnv("USE_SSM", "false") == "true"

	var paramMap map[string]string

	// Stage & base path for SSM (allows multi-env without code changes)
	basePath := getEnv("SSM_BASE_PATH", "/studioops")
	stage := getEnv("STAGE", getEnv("APP_ENV", "production"))
	basePath = strings.TrimRight(basePath, "/")
	prefix := basePath + "/" + stage

	if useSSM {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(getEnv("AWS_REGION", "ap-south-1"))})
		if err != nil {
			log.Fatal("Failed to create AWS session:", err)
		}
		log.Printf("Using AWS SSM Parameter Store (prefix=%s)", prefix)
		paramMap = fetchSSMParameters(ssm.New(sess), prefix)
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using environment variables")
		}
	}

	cfg, err := buildConfig(lookupFunc(paramMap))
	if err != nil {
		log.Fatal(err)
	}
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("%v (SSM=%v)", err, useSSM)
	}
	AppConfig = cfg
}

// lookupFunc prefers SSM parameters and falls back to the environment.
func lookupFunc(params map[string]string) func(key, def string) string {
	return func(key, def string) string {
		uk := strings.ToUpper(key)
		if v, ok := params[uk]; ok && v != "" {
			return v
		}
		return getEnv(uk, def)
	}
}

func buildConfig(getVal func(key, def string) string) (*Config, error) {
	jwtExpires, err := parseExpiry(getVal("JWT_EXPIRES_IN", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN format: %w", err)
	}

	driver := strings.ToLower(getVal("DB_DRIVER", "mysql"))
	if driver != "mysql" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return &Config{
		DBDriver:   driver,
		DBHost:     getVal("DB_HOST", "localhost"),
		DBPort:     getVal("DB_PORT", "3306"),
		DBUser:     getVal("DB_USER", "root"),
		DBPassword: getVal("DB_PASSWORD", ""),
		DBName:     getVal("DB_NAME", "studioops"),
		SQLitePath: getVal("SQLITE_PATH", "studioops.db"),

		RedisHost:     getVal("REDIS_HOST", "localhost"),
		RedisPort:     getVal("REDIS_PORT", "6379"),
		RedisPassword: getVal("REDIS_PASSWORD", ""),

		JWTSecret:    getVal("JWT_SECRET", "your_super_secret_jwt_key"),
		JWTExpiresIn: jwtExpires,

		AWSRegion:    getVal("AWS_REGION", "ap-south-1"),
		ExportBucket: getVal("EXPORT_BUCKET", ""),

		Port:   getVal("PORT", "3000"),
		AppEnv: getVal("APP_ENV", "development"),

		LogLevel: getVal("LOG_LEVEL", "info"),
		LogFile:  getVal("LOG_FILE", "logs/app.log"),

		DefaultTimezone:    getVal("DEFAULT_TIMEZONE", "Asia/Kolkata"),
		StrictOverlapGuard: parseBool(getVal("STRICT_OVERLAP_GUARD", "false")),
		ReminderCron:       getVal("REMINDER_CRON", "0 7 * * *"),
		UpcomingCron:       getVal("UPCOMING_CRON", "*/15 * * * *"),

		LineChannelSecret: getVal("LINE_CHANNEL_SECRET", ""),
		LineChannelToken:  getVal("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineGroupID:       getVal("LINE_GROUP_ID", ""),

		UseRedisNotifications: parseBool(getVal("USE_REDIS_NOTIFICATIONS", "false")),
		SkipMigrate:           parseBool(getVal("SKIP_MIGRATE", "false")),
		SeedData:              parseBool(getVal("SEED_DATA", "false")),
	}, nil
}

// parseExpiry accepts Go durations plus "7d" / "2w" shorthands.
func parseExpiry(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err == nil {
		return d, nil
	}
	s := strings.TrimSpace(strings.ToLower(raw))
	if len(s) > 1 {
		unit := s[len(s)-1]
		if n, err2 := strconv.Atoi(s[:len(s)-1]); err2 == nil {
			switch unit {
			case 'd':
				return time.Duration(n) * 24 * time.Hour, nil
			case 'w':
				return time.Duration(n*7) * 24 * time.Hour, nil
			}
		}
	}
	return 0, err
}

func parseBool(v string) bool {
	return strings.ToLower(strings.TrimSpace(v)) == "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// fetchSSMParameters reads all parameters under prefix and returns map with UPPERCASE keys.
func fetchSSMParameters(client *ssm.SSM, prefix string) map[string]string {
	out := make(map[string]string)
	var next *string
	for {
		in := &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			Recursive:      aws.Bool(true),
			NextToken:      next,
		}
		resp, err := client.GetParametersByPath(in)
		if err != nil {
			log.Printf("Warning: unable to fetch SSM parameters for prefix %s: %v", prefix, err)
			break
		}
		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			name := *p.Name
			// last segment after '/'
			key := name
			if idx := strings.LastIndex(name, "/"); idx >= 0 {
				key = name[idx+1:]
			}
			if key == "" {
				continue
			}
			out[strings.ToUpper(key)] = *p.Value
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		next = resp.NextToken
	}
	return out
}

func validateConfig(c *Config) error {
	// Only enforce stricter rules in production
	if strings.ToLower(c.AppEnv) != "production" {
		return nil
	}
	required := map[string]string{
		"JWT_SECRET": c.JWTSecret,
	}
	if c.DBDriver == "mysql" {
		required["DB_PASSWORD"] = c.DBPassword
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("missing required secret %s in production", k)
		}
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET too short (min 16 chars)")
	}
	return nil
}
