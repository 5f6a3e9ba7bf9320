package config

import (
	"os"
	"strconv"
	"strings"
)

type EnvConfig struct {
	Postgres struct {
		Host     string
		Database string
		Username string
		Password string
		Port     string
	}
	Redis struct {
		Password string
		Database int
		Host     string
		Port     string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Policy struct {
		PutPolicy    string
		GetPolicy    string
		InitRegions  []string
		SingleRegion string
		BucketPrefix string
		DefaultTTL   int64 // seconds
	}
	Reconciler struct {
		LockTimeoutMinutes int
		ExpiryIntervalSecs int
	}
	TransferGraph struct {
		ProfilePath string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode  string
		Group string
	}
	Server struct {
		Port string
	}
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.Host = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")
	if config.Postgres.Port == "" {
		config.Postgres.Port = "5432"
	}

	// Redis
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.Host = os.Getenv("REDIS_HOST")
	config.Redis.Port = os.Getenv("REDIS_PORT")
	if config.Redis.Port == "" {
		config.Redis.Port = "6379"
	}

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// Placement / transfer policy defaults
	config.Policy.PutPolicy = os.Getenv("PUT_POLICY")
	if config.Policy.PutPolicy == "" {
		config.Policy.PutPolicy = "write_local"
	}
	config.Policy.GetPolicy = os.Getenv("GET_POLICY")
	if config.Policy.GetPolicy == "" {
		config.Policy.GetPolicy = "direct"
	}
	if regions := os.Getenv("INIT_REGIONS"); regions != "" {
		config.Policy.InitRegions = strings.Split(regions, ",")
	} else {
		config.Policy.InitRegions = []string{"aws:us-west-1", "aws:us-east-1", "gcp:us-west1-a"}
	}
	config.Policy.SingleRegion = os.Getenv("POLICY_SINGLE_REGION")
	if config.Policy.SingleRegion == "" {
		config.Policy.SingleRegion = config.Policy.InitRegions[0]
	}
	config.Policy.BucketPrefix = os.Getenv("STORE_BUCKET_PREFIX")
	if config.Policy.BucketPrefix == "" {
		config.Policy.BucketPrefix = "gau-store"
	}
	if ttlStr := os.Getenv("POLICY_DEFAULT_TTL"); ttlStr != "" {
		if ttl, err := strconv.ParseInt(ttlStr, 10, 64); err == nil {
			config.Policy.DefaultTTL = ttl
		}
	}
	if config.Policy.DefaultTTL == 0 {
		config.Policy.DefaultTTL = 12 * 60 * 60 // 12 hrs
	}

	// Reconciler
	config.Reconciler.LockTimeoutMinutes, _ = strconv.Atoi(os.Getenv("RECONCILER_LOCK_TIMEOUT_MINUTES"))
	if config.Reconciler.LockTimeoutMinutes == 0 {
		config.Reconciler.LockTimeoutMinutes = 10
	}
	config.Reconciler.ExpiryIntervalSecs, _ = strconv.Atoi(os.Getenv("RECONCILER_EXPIRY_INTERVAL_SECONDS"))
	if config.Reconciler.ExpiryIntervalSecs == 0 {
		config.Reconciler.ExpiryIntervalSecs = 30
	}

	config.TransferGraph.ProfilePath = os.Getenv("TRANSFER_GRAPH_PROFILE")

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gau-store-server"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}
	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	config.Server.Port = os.Getenv("SERVER_PORT")
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	return &config
}
