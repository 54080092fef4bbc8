package config

// Config 全局配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Vector    VectorConfig    `mapstructure:"vector"`
	QA        QAConfig        `mapstructure:"qa"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// AuthConfig 管理接口鉴权配置
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Tokens  []string `mapstructure:"tokens"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig 答案缓存配置
type CacheConfig struct {
	Type  string      `mapstructure:"type"` // memory / redis
	TTL   int         `mapstructure:"ttl"`  // 秒
	Size  int         `mapstructure:"size"` // memory 模式下的容量上限
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// VectorConfig 相似度检索配置
type VectorConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	TopK                int     `mapstructure:"top_k"`
}

// QAConfig 问答存储配置
type QAConfig struct {
	MaxVersions int `mapstructure:"max_versions"` // 版本历史上限
}

// LLMConfig 生成模型配置
type LLMConfig struct {
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"`    // 秒
	MaxTokens int    `mapstructure:"max_tokens"` // 输出长度上限
}

// EmbeddingConfig 向量嵌入配置
type EmbeddingConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}
