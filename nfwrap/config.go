package nfwrap

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// this file contains type definitions for the config struct and the functions for loading it

const (
	// environment variables
	executionTokenEnvVar = "FLYTE_INTERNAL_EXECUTION_ID"
	executionNameEnvVar  = "NFWRAP_EXECUTION_NAME"
	podNamespaceEnvVar   = "POD_NAMESPACE"
	podNameEnvVar        = "HOSTNAME"
	awsCredsEnvVar       = "AWSCREDS"
	minioEndpointEnvVar  = "NFWRAP_MINIO_ENDPOINT"
	minioAccessKeyEnvVar = "NFWRAP_MINIO_ACCESS_KEY"
	minioSecretKeyEnvVar = "NFWRAP_MINIO_SECRET_KEY"

	S3    = "s3"
	MINIO = "minio"

	defaultProvisionURL = "http://nf-dispatcher-service.flyte.svc.cluster.local/provision-storage"
)

// Config is everything a run needs that is not a pipeline parameter
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Provisioner ProvisionerConfig `yaml:"provisioner"`
	Storage     StorageConfig     `yaml:"storage"`
	Execution   ExecutionConfig   `yaml:"execution"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Catalog     string            `yaml:"catalog"` // path to a catalog file; empty means the built-in one
	LogLevel    string            `yaml:"log_level"`
	LogFormat   string            `yaml:"log_format"`

	// platform identity, never read from the config file
	ExecutionToken string `yaml:"-"`
}

// EngineConfig describes how the engine is laid out and launched
type EngineConfig struct {
	Executable      string            `yaml:"executable"`
	EntryPoint      string            `yaml:"entry_point"`
	Profile         string            `yaml:"profile"`
	ConfigFile      string            `yaml:"config_file"`
	LogFile         string            `yaml:"log_file"`
	Home            string            `yaml:"home"`
	Opts            string            `yaml:"opts"`
	SourceDir       string            `yaml:"source_dir"`
	WorkDir         string            `yaml:"work_dir"`
	Exclude         []string          `yaml:"exclude"`
	Env             map[string]string `yaml:"env"`
	StopGracePeriod time.Duration     `yaml:"stop_grace_period"`
}

// EntryPointPath is the absolute path of the pipeline script inside the work dir
func (conf *EngineConfig) EntryPointPath() string {
	return filepath.Join(conf.WorkDir, conf.EntryPoint)
}

// LogPath is where the engine writes its log
func (conf *EngineConfig) LogPath() string {
	return filepath.Join(conf.WorkDir, conf.LogFile)
}

type ProvisionerConfig struct {
	URL        string        `yaml:"url"`
	StorageGiB int           `yaml:"storage_gib"`
	Timeout    time.Duration `yaml:"timeout"`
}

// StorageConfig selects the durable store for logs
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	UseSSL    bool   `yaml:"use_ssl"`
	LogPrefix string `yaml:"log_prefix"`

	AWSCreds       string `yaml:"-"`
	MinioAccessKey string `yaml:"-"`
	MinioSecretKey string `yaml:"-"`
}

// ExecutionConfig tells the name resolver where to look
type ExecutionConfig struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
	Pod       string `yaml:"pod"`
	NameLabel string `yaml:"name_label"`
}

type DatabaseConfig struct {
	CredsFile string `yaml:"creds_file"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// DefaultConfig is the layout of the nf-core/smrnaseq task image
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Executable: "/root/nextflow",
			EntryPoint: "main.nf",
			Profile:    "docker",
			ConfigFile: "latch.config",
			LogFile:    ".nextflow.log",
			Home:       "/root/.nextflow",
			Opts:       "-Xms2048M -Xmx8G -XX:ActiveProcessorCount=4",
			SourceDir:  "/root",
			WorkDir:    "/nf-workdir",
			Exclude: []string{
				"latch",
				".latch",
				"nextflow",
				".nextflow",
				"work",
				"results",
				"miniconda",
				"anaconda3",
				"mambaforge",
			},
			StopGracePeriod: 30 * time.Second,
		},
		Provisioner: ProvisionerConfig{
			URL:        defaultProvisionURL,
			StorageGiB: 100,
			Timeout:    5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:   S3,
			Region:    "us-west-2",
			LogPrefix: "your_log_dir/nf_nf_core_smrnaseq",
		},
		Execution: ExecutionConfig{
			NameLabel: "execution-id",
		},
		Server: ServerConfig{
			Port: 80,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadConfig reads a yaml config file over the defaults
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{err, "failed to read config file"}
	}
	if err = yaml.Unmarshal(b, conf); err != nil {
		return nil, &ConfigurationError{err, "failed to parse config file"}
	}
	return conf, nil
}

// FromEnv fills in what the platform hands the task through its environment.
// Values already set are only replaced by non-empty variables.
func (conf *Config) FromEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&conf.ExecutionToken, executionTokenEnvVar)
	set(&conf.Execution.Name, executionNameEnvVar)
	set(&conf.Execution.Namespace, podNamespaceEnvVar)
	set(&conf.Execution.Pod, podNameEnvVar)
	set(&conf.Storage.AWSCreds, awsCredsEnvVar)
	set(&conf.Storage.Endpoint, minioEndpointEnvVar)
	set(&conf.Storage.MinioAccessKey, minioAccessKeyEnvVar)
	set(&conf.Storage.MinioSecretKey, minioSecretKeyEnvVar)
}

// Validate catches configs that could never run or never deliver their logs
func (conf *Config) Validate() error {
	switch conf.Storage.Backend {
	case S3, MINIO:
	default:
		return configErrorf("invalid config", "unknown storage backend %q", conf.Storage.Backend)
	}
	if conf.Engine.Executable == "" || conf.Engine.WorkDir == "" {
		return configErrorf("invalid config", "engine executable and work dir are required")
	}
	if conf.Provisioner.URL == "" {
		return configErrorf("invalid config", "provisioner url is required")
	}
	if conf.Provisioner.StorageGiB <= 0 {
		return configErrorf("invalid config", "storage_gib must be positive, got %d", conf.Provisioner.StorageGiB)
	}
	if conf.Storage.Bucket == "" {
		return configErrorf("invalid config", "storage.bucket is required, logs would have nowhere to go")
	}
	return nil
}

func (conf *Config) String() string {
	return fmt.Sprintf("engine=%v workdir=%v backend=%v bucket=%v", conf.Engine.Executable, conf.Engine.WorkDir, conf.Storage.Backend, conf.Storage.Bucket)
}
