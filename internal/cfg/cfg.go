package cfg

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/jimlawless/whereami"
)

const (
	StorageBackendLocal = "local"
	StorageBackendMinio = "minio"

	LockBackendNone   = "none"
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	Http        *HTTPConfig
	Storage     *StorageCfg
	Minio       *MinIOCfg
	Redis       *RedisCfg
	Lock        *LockCfg
	Compression *CompressionCfg
	Upload      *UploadCfg
	Sweep       *SweepCfg
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StorageCfg struct {
	Backend string // local | minio
	Dir     string // Каталог для артефактов (backend=local)
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет, в котором лежат артефакты
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type LockCfg struct {
	Backend string        // none | memory | redis
	TTL     time.Duration // Максимальное время удержания блокировки ключа
	Prefix  string        // Префикс ключей блокировок в Redis
}

// CompressionCfg — политики обработки пакета изображений.
type CompressionCfg struct {
	MaxBatchSize   int           // Сколько изображений из пакета обрабатывается, остальные игнорируются
	DefaultQuality int           // Качество, если клиент его не передал
	DefaultFormat  domain.Format // Формат, если клиент его не передал
	Workers        int           // Сколько изображений пакета перекодируется одновременно
}

type UploadCfg struct {
	MaxRequestBytes int64
	MaxFileBytes    int64
	MaxMemory       int64 // Сколько multipart-формы держать в памяти
}

type SweepCfg struct {
	Interval time.Duration // 0 отключает периодическую очистку
	TTL      time.Duration // Возраст, после которого невостребованный артефакт удаляется
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	storage, err := loadStorageCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log, storage.Backend == StorageBackendMinio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	lock, err := loadLockCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	compression, err := loadCompressionCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	upload, err := loadUploadCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	sweep, err := loadSweepCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Http:        http,
		Storage:     storage,
		Minio:       minio,
		Redis:       redis,
		Lock:        lock,
		Compression: compression,
		Upload:      upload,
		Sweep:       sweep,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "9990"
		defaultReadTimeout  = 30 * time.Second
		defaultWriteTimeout = 60 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadStorageCfg() (*StorageCfg, error) {
	const (
		defaultBackend = StorageBackendLocal
		defaultDir     = "files"
	)

	backend := strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", defaultBackend))
	switch backend {
	case StorageBackendLocal, StorageBackendMinio:
	default:
		return nil, e.Wrap(fmt.Sprintf("STORAGE_BACKEND=%q", backend), e.ErrIncorrectEnvVariable)
	}

	return &StorageCfg{
		Backend: backend,
		Dir:     getEnvOrDefault("FILE_DIR", defaultDir),
	}, nil
}

func loadMinIOCfg(log logger.Logger, required bool) (*MinIOCfg, error) {
	const (
		defaultUseSSL   = false
		defaultEndpoint = "minio:9000"
		defaultBucket   = "compressed-images"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	cfg := &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}

	if required && (cfg.MinioRootUser == "" || cfg.MinioRootPassword == "") {
		err := fmt.Errorf("MINIO_ROOT_USER and MINIO_ROOT_PASSWORD are required for STORAGE_BACKEND=minio")
		log.Errorf(err, "missing MinIO credentials")
		return nil, err
	}

	return cfg, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     max(readTimeout, writeTimeout),
	}, nil
}

func loadLockCfg(log logger.Logger) (*LockCfg, error) {
	const (
		defaultBackend = LockBackendNone
		defaultTTL     = 30 * time.Second
		defaultPrefix  = "imgshrink:lock:"
	)

	backend := strings.ToLower(getEnvOrDefault("LOCK_BACKEND", defaultBackend))
	switch backend {
	case LockBackendNone, LockBackendMemory, LockBackendRedis:
	default:
		return nil, e.Wrap(fmt.Sprintf("LOCK_BACKEND=%q", backend), e.ErrIncorrectEnvVariable)
	}

	ttl, err := parseDurationEnv("LOCK_TTL", defaultTTL)
	if err != nil {
		log.Errorf(err, "invalid LOCK_TTL")
		return nil, err
	}

	return &LockCfg{
		Backend: backend,
		TTL:     ttl,
		Prefix:  getEnvOrDefault("LOCK_PREFIX", defaultPrefix),
	}, nil
}

func loadCompressionCfg() (*CompressionCfg, error) {
	const (
		defaultMaxBatchSize = 5
		defaultQuality      = 30
		defaultFormat       = "JPEG"
		minQuality          = 1
		maxQuality          = 100
	)

	maxBatch, err := parseIntEnv("MAX_BATCH_SIZE", defaultMaxBatchSize)
	if err != nil {
		return nil, e.Wrap("MAX_BATCH_SIZE", err)
	}
	if maxBatch < 1 {
		return nil, e.Wrap("MAX_BATCH_SIZE must be positive", e.ErrIncorrectEnvVariable)
	}

	quality, err := parseIntEnv("DEFAULT_QUALITY", defaultQuality)
	if err != nil {
		return nil, e.Wrap("DEFAULT_QUALITY", err)
	}
	if quality < minQuality || quality > maxQuality {
		return nil, e.Wrap("DEFAULT_QUALITY must be within [1, 100]", e.ErrIncorrectEnvVariable)
	}

	workers, err := parseIntEnv("TRANSCODE_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, e.Wrap("TRANSCODE_WORKERS", err)
	}
	if workers < 1 {
		workers = 1
	}

	format, err := domain.ParseFormat(getEnvOrDefault("DEFAULT_FORMAT", defaultFormat))
	if err != nil {
		return nil, e.Wrap("DEFAULT_FORMAT", err)
	}

	return &CompressionCfg{
		MaxBatchSize:   maxBatch,
		DefaultQuality: quality,
		DefaultFormat:  format,
		Workers:        workers,
	}, nil
}

func loadUploadCfg() (*UploadCfg, error) {
	const (
		defaultMaxRequestBytes = 64 << 20
		defaultMaxFileBytes    = 20 << 20
		defaultMaxMemory       = 32 << 20
	)

	maxRequest, err := parseInt64Env("UPLOAD_MAX_REQUEST_BYTES", defaultMaxRequestBytes)
	if err != nil {
		return nil, e.Wrap("UPLOAD_MAX_REQUEST_BYTES", err)
	}

	maxFile, err := parseInt64Env("UPLOAD_MAX_FILE_BYTES", defaultMaxFileBytes)
	if err != nil {
		return nil, e.Wrap("UPLOAD_MAX_FILE_BYTES", err)
	}

	maxMemory, err := parseInt64Env("UPLOAD_MAX_MEMORY", defaultMaxMemory)
	if err != nil {
		return nil, e.Wrap("UPLOAD_MAX_MEMORY", err)
	}

	return &UploadCfg{
		MaxRequestBytes: maxRequest,
		MaxFileBytes:    maxFile,
		MaxMemory:       maxMemory,
	}, nil
}

func loadSweepCfg(log logger.Logger) (*SweepCfg, error) {
	const (
		defaultInterval = 10 * time.Minute
		defaultTTL      = time.Hour
	)

	interval, err := parseDurationEnv("SWEEP_INTERVAL", defaultInterval)
	if err != nil {
		log.Errorf(err, "invalid SWEEP_INTERVAL")
		return nil, err
	}

	ttl, err := parseDurationEnv("ARTIFACT_TTL", defaultTTL)
	if err != nil {
		log.Errorf(err, "invalid ARTIFACT_TTL")
		return nil, err
	}

	return &SweepCfg{
		Interval: interval,
		TTL:      ttl,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func parseInt64Env(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.ParseInt(v, 10, 64)
	if err != nil || intValue <= 0 {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
