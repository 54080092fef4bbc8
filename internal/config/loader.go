package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// 默认配置文件搜索路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.qabot")
		v.AddConfigPath("/etc/qabot")
	}

	// 支持环境变量
	v.SetEnvPrefix("QABOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果是找不到配置文件，则使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 替换环境变量
	expandEnvVars(&config)

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Server 默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)

	// Auth 默认配置
	v.SetDefault("auth.enabled", false)

	// Database 默认配置
	v.SetDefault("database.path", "./data/qabot.db")

	// Cache 默认配置
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600)
	v.SetDefault("cache.size", 4096)
	v.SetDefault("cache.redis.host", "127.0.0.1")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)

	// 相似度检索默认配置
	v.SetDefault("vector.similarity_threshold", 0.8)
	v.SetDefault("vector.top_k", 3)

	// 问答存储默认配置
	v.SetDefault("qa.max_versions", 10)

	// LLM 默认配置
	v.SetDefault("llm.timeout", 30)
	v.SetDefault("llm.max_tokens", 500)
}

// expandEnvVars 展开配置中的环境变量
func expandEnvVars(config *Config) {
	config.LLM.APIKey = os.ExpandEnv(config.LLM.APIKey)
	config.Embedding.APIKey = os.ExpandEnv(config.Embedding.APIKey)
	config.Cache.Redis.Password = os.ExpandEnv(config.Cache.Redis.Password)

	for i, token := range config.Auth.Tokens {
		config.Auth.Tokens[i] = os.ExpandEnv(token)
	}
}
