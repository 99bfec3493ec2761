package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ModelURL       string
	ModelCacheDir  string
	OnnxLibrary    string
	InputSize      int
	ScoreThreshold float64
	IOUThreshold   float64
	LabelsFile     string
	FlowFile       string
	HTTPAddr       string
	AllowFilePaths bool
	TelegramToken  string
	LogLevel       string
	LogFormat      string
}

// NodeSpec описание экземпляра узла в файле потока
type NodeSpec struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	ModelURL string `yaml:"modelUrl"`
}

type flowFile struct {
	Nodes []NodeSpec `yaml:"nodes"`
}

// DefaultNodeID идентификатор узла, если файл потока не задан
const DefaultNodeID = "detector"

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		ModelURL:      os.Getenv("MODEL_URL"),
		ModelCacheDir: os.Getenv("MODEL_CACHE_DIR"),
		OnnxLibrary:   os.Getenv("ONNXRUNTIME_LIB"),
		LabelsFile:    os.Getenv("LABELS_FILE"),
		FlowFile:      os.Getenv("FLOW_FILE"),
		HTTPAddr:      getEnv("HTTP_ADDR", "127.0.0.1:8080"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
	}

	var err error
	if cfg.InputSize, err = getInt("MODEL_INPUT_SIZE", 640); err != nil {
		return nil, err
	}
	if cfg.AllowFilePaths, err = getBool("HTTP_ALLOW_PATHS", false); err != nil {
		return nil, err
	}
	if cfg.ScoreThreshold, err = getFloat("SCORE_THRESHOLD", 0.5); err != nil {
		return nil, err
	}
	if cfg.IOUThreshold, err = getFloat("IOU_THRESHOLD", 0.45); err != nil {
		return nil, err
	}

	if cfg.InputSize <= 0 || cfg.InputSize%32 != 0 {
		return nil, fmt.Errorf("MODEL_INPUT_SIZE must be a positive multiple of 32, got %d", cfg.InputSize)
	}
	if cfg.ScoreThreshold <= 0 || cfg.ScoreThreshold > 1 {
		return nil, fmt.Errorf("SCORE_THRESHOLD must be in (0, 1], got %v", cfg.ScoreThreshold)
	}
	if cfg.IOUThreshold <= 0 || cfg.IOUThreshold > 1 {
		return nil, fmt.Errorf("IOU_THRESHOLD must be in (0, 1], got %v", cfg.IOUThreshold)
	}

	return cfg, nil
}

// Nodes возвращает узлы из файла потока или один узел по умолчанию
func (c *Config) Nodes() ([]NodeSpec, error) {
	if c.FlowFile == "" {
		return []NodeSpec{{ID: DefaultNodeID, Name: "object detection", ModelURL: c.ModelURL}}, nil
	}
	return LoadFlow(c.FlowFile, c.ModelURL)
}

// LoadFlow читает узлы из YAML-файла потока.
// Узлы без modelUrl получают defaultModelURL.
func LoadFlow(path, defaultModelURL string) ([]NodeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow file: %w", err)
	}

	var flow flowFile
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("parse flow file: %w", err)
	}
	if len(flow.Nodes) == 0 {
		return nil, fmt.Errorf("flow file %s has no nodes", path)
	}

	seen := make(map[string]bool, len(flow.Nodes))
	for i := range flow.Nodes {
		node := &flow.Nodes[i]
		if node.ID == "" {
			return nil, fmt.Errorf("flow node #%d has no id", i+1)
		}
		if seen[node.ID] {
			return nil, fmt.Errorf("duplicate flow node id %q", node.ID)
		}
		seen[node.ID] = true

		if node.ModelURL == "" {
			node.ModelURL = defaultModelURL
		}
	}

	return flow.Nodes, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
