package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/semloc/data/db/knowledge.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/semloc/data/indices/vectors"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "/usr/local/var/semloc/data/indices/keywords"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/semloc/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	cfg.Ranking.ApplyDefaults()
	if cfg.Resolve.Workers == 0 {
		cfg.Resolve.Workers = 4
	}
	if cfg.Resolve.VerifyWorkers == 0 {
		cfg.Resolve.VerifyWorkers = 1
	}
	if cfg.Resolve.FallbackLimit == 0 {
		cfg.Resolve.FallbackLimit = 3
	}
	if cfg.Resolve.VerifyTimeoutMS == 0 {
		cfg.Resolve.VerifyTimeoutMS = 5000
	}
	if cfg.Resolve.PutRetries == 0 {
		cfg.Resolve.PutRetries = 3
	}
	if cfg.Resolve.NodeShortlist == 0 {
		cfg.Resolve.NodeShortlist = 20
	}
	if cfg.Resolve.FeatureCacheSize == 0 {
		cfg.Resolve.FeatureCacheSize = 64
	}
	if cfg.Browser.Mode == "" {
		cfg.Browser.Mode = "playwright"
	}
	if cfg.Browser.NavigationTimeoutMS == 0 {
		cfg.Browser.NavigationTimeoutMS = 30000
	}
}
