package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/chronicle/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills unset fields with defaults", func() {
			writeConfig(`version = 0

[storage]
provider = "postgres"
postgres_dsn = "postgres://localhost/chronicle"

[vector_store]
provider = "chroma"
target = "http://localhost:8000"

[eventstream]
provider = "kafka"
brokers = ["localhost:9092", "localhost:9093"]
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Provider).To(Equal("postgres"))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://localhost/chronicle"))
			Expect(cfg.VectorStore.Provider).To(Equal("chroma"))
			Expect(cfg.VectorStore.Target).To(Equal("http://localhost:8000"))
			Expect(cfg.EventStream.Brokers).To(Equal([]string{"localhost:9092", "localhost:9093"}))

			defaults := config.NewDefaultConfig()
			Expect(cfg.VectorStore.Collection).To(Equal(defaults.VectorStore.Collection))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
			Expect(cfg.Ingest.MaxChars).To(Equal(uint(5000)))
			Expect(cfg.Timeouts.Fetch).To(Equal("30s"))
			Expect(cfg.EventStream.Topic).To(Equal(defaults.EventStream.Topic))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("this is not [valid toml")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing config TOML"))
		})

		It("rejects keys outside the schema", func() {
			writeConfig("[vector_store]\nprovder = \"chroma\"\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unknown config keys: vector_store.provder")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 99\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Generation.Provider = "anthropic"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Generation.Provider).To(Equal("anthropic"))
		})

		It("writes an owner-only file and leaves no temp files behind", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(config.NewDefaultConfig())).To(Succeed())

			info, err := os.Stat(c.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			entries, err := os.ReadDir(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal("config.toml"))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError(ContainSubstring("nil config")))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("round-trips string keys", func() {
			Expect(c.SetConfigValue("client.owner_id", "user-1")).To(Succeed())

			value, err := c.GetConfigValue("client.owner_id")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("user-1"))
		})

		It("round-trips uint keys", func() {
			Expect(c.SetConfigValue("embedding.dimensions", "768")).To(Succeed())

			value, err := c.GetConfigValue("embedding.dimensions")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("768"))
		})

		It("round-trips float keys", func() {
			Expect(c.SetConfigValue("ingest.requests_per_second", "2.5")).To(Succeed())

			value, err := c.GetConfigValue("ingest.requests_per_second")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("2.5"))
		})

		It("splits comma-separated brokers", func() {
			Expect(c.SetConfigValue("eventstream.brokers", "a:9092, b:9092,")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.EventStream.Brokers).To(Equal([]string{"a:9092", "b:9092"}))

			value, err := c.GetConfigValue("eventstream.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("a:9092,b:9092"))
		})

		It("validates log level and format", func() {
			Expect(c.SetConfigValue("log.level", "warn")).To(Succeed())
			Expect(c.SetConfigValue("log.format", "json")).To(Succeed())
			Expect(c.SetConfigValue("log.level", "chatty")).To(MatchError(ContainSubstring("unknown log level")))
			Expect(c.SetConfigValue("log.format", "xml")).To(MatchError(ContainSubstring("unknown log format")))

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Log).To(Equal(config.LogConfig{Level: "warn", Format: "json"}))
		})

		It("validates durations, numbers and unknown keys", func() {
			Expect(c.SetConfigValue("timeouts.vector", "soon")).To(MatchError(ContainSubstring("timeouts.vector")))
			Expect(c.SetConfigValue("ingest.max_chars", "-1")).To(MatchError(ContainSubstring("ingest.max_chars")))
			Expect(c.SetConfigValue("ingest.requests_per_second", "-2")).To(HaveOccurred())
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))

			_, err := c.GetConfigValue("nope")
			Expect(err).To(HaveOccurred())
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("generation.provider", "openai")).To(Succeed())
			Expect(c.SetConfigValue("generation.model", "gpt-4o-mini")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Generation.Provider).To(Equal("openai"))
			Expect(cfg.Generation.Model).To(Equal("gpt-4o-mini"))
		})
	})

	Describe("UnsetConfigValue", func() {
		It("puts the default back", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("embedding.dimensions", "768")).To(Succeed())
			Expect(cfger.UnsetConfigValue("embedding.dimensions")).To(Succeed())

			Expect(cfger.GetConfigValue("embedding.dimensions")).To(Equal("1536"))
			Expect(config.DefaultConfigValue("embedding.dimensions")).To(Equal("1536"))
		})

		It("rejects unknown keys", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfger.UnsetConfigValue("nope")).To(MatchError(ContainSubstring("unknown config key")))

			_, err = config.DefaultConfigValue("nope")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every key exactly once, starting with storage", func() {
			keys := config.ValidConfigKeys()
			Expect(keys[0]).To(Equal("storage.provider"))
			Expect(keys).To(ContainElements("vector_store.collection", "generation.provider", "timeouts.fetch", "eventstream.brokers"))

			seen := map[string]bool{}
			for _, k := range keys {
				Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
				seen[k] = true
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})

		It("rejects keys from other layouts", func() {
			Expect(config.IsValidConfigKey("proxy.provider")).To(BeFalse())
			Expect(config.IsValidConfigKey("sqlite_path")).To(BeFalse())
		})
	})
})

var _ = Describe("PresetConfig", func() {
	It("points generation at the preset provider", func() {
		cfg, err := config.PresetConfig("OpenAI")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Generation.Provider).To(Equal("openai"))
		Expect(cfg.VectorStore.Provider).To(Equal("qdrant"))
	})

	It("configures local embeddings for ollama", func() {
		cfg, err := config.PresetConfig("ollama")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("bogus")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("names every preset", func() {
		for _, name := range config.ValidPresetNames() {
			_, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred())
		}
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("storage.provider")).To(Equal(defaults.Storage.Provider))
		Expect(v.GetString("vector_store.provider")).To(Equal(defaults.VectorStore.Provider))
		Expect(v.GetUint("embedding.dimensions")).To(Equal(defaults.Embedding.Dimensions))
		Expect(v.GetString("generation.provider")).To(Equal(defaults.Generation.Provider))
	})

	It("carries typed defaults for every section", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("eventstream.topic")).To(Equal(defaults.EventStream.Topic))
		Expect(v.GetUint("ingest.max_concurrency")).To(Equal(defaults.Ingest.MaxConcurrency))
		Expect(v.GetFloat64("ingest.requests_per_second")).To(Equal(defaults.Ingest.RequestsPerSecond))
		Expect(v.GetString("timeouts.fetch")).To(Equal(defaults.Timeouts.Fetch))
		Expect(v.GetString("log.format")).To(Equal(defaults.Log.Format))
	})

	It("reads config file values over defaults", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(`[generation]
provider = "anthropic"
`), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("generation.provider")).To(Equal("anthropic"))
		Expect(v.GetString("generation.model")).To(Equal(config.NewDefaultConfig().Generation.Model))
	})

	It("env vars take precedence over config file values", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(`[vector_store]
provider = "chroma"
`), 0o600)).To(Succeed())
		GinkgoT().Setenv("CHRONICLE_VECTOR_STORE_PROVIDER", "sqlite")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("vector_store.provider")).To(Equal("sqlite"))
	})

	It("parses duration keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		d, err := config.Duration(v, "timeouts.generation")
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(60 * time.Second))

		v.Set("timeouts.vector", "later")
		_, err = config.Duration(v, "timeouts.vector")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("EnvVarForKey", func() {
	It("maps dotted keys onto the CHRONICLE_ namespace", func() {
		Expect(config.EnvVarForKey("vector_store.target")).To(Equal("CHRONICLE_VECTOR_STORE_TARGET"))
		Expect(config.EnvVarForKey("log.level")).To(Equal("CHRONICLE_LOG_LEVEL"))
	})
})

var _ = Describe("FlagSet", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	fs := config.FlagSet{
		config.FlagAPIListen:     {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
		config.FlagEmbeddingDims: {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality", Kind: config.UintFlag},
	}

	It("binds set flags over config values", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		fs.Register(cmd, config.FlagAPIListen)
		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())

		Expect(fs.Bind(v, cmd, config.FlagAPIListen)).To(Succeed())
		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("falls through to config when a flag is not set", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[api]\nlisten = \":5555\"\n"), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		fs.Register(cmd, config.FlagAPIListen)

		Expect(fs.Bind(v, cmd, config.FlagAPIListen, "nonexistent")).To(Succeed())
		Expect(v.GetString("api.listen")).To(Equal(":5555"))
	})

	It("registers uint flags with defaults from the default config", func() {
		cmd := &cobra.Command{Use: "test"}
		fs.Register(cmd, config.FlagEmbeddingDims, "nonexistent")

		f := cmd.Flags().Lookup("embedding-dimensions")
		Expect(f).NotTo(BeNil())
		Expect(f.Value.Type()).To(Equal("uint"))
		Expect(f.DefValue).To(Equal("1536"))
		Expect(cmd.Flags().Lookup("nonexistent")).To(BeNil())
	})
})

var _ = Describe("ResolveClient", func() {
	var (
		tmpDir string
		cmd    *cobra.Command
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("CHRONICLE_CLIENT_OWNER_ID", "")
		GinkgoT().Setenv("CHRONICLE_CLIENT_API_TARGET", "")

		cmd = &cobra.Command{Use: "test"}
		cmd.Flags().String("config-dir", tmpDir, "")
		config.ClientFlags.Register(cmd, config.ClientFlags.Keys()...)
	})

	It("uses defaults without config", func() {
		target, err := config.ResolveClient(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(target.APITarget).To(Equal(config.NewDefaultConfig().Client.APITarget))
		Expect(target.OwnerID).To(BeEmpty())
	})

	It("prefers flags over the environment over config.toml", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"),
			[]byte("[client]\napi_target = \"http://file:1\"\nowner_id = \"file-owner\"\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("CHRONICLE_CLIENT_OWNER_ID", "env-owner")

		target, err := config.ResolveClient(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(target).To(Equal(config.ClientTarget{APITarget: "http://file:1", OwnerID: "env-owner"}))

		Expect(cmd.Flags().Set("owner", "flag-owner")).To(Succeed())
		target, err = config.ResolveClient(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(target.OwnerID).To(Equal("flag-owner"))
	})
})
