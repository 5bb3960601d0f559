package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.etcd.io/bbolt"

	"scholar/api"
	"scholar/auth"
	"scholar/biblio"
	"scholar/cache"
	"scholar/enrich"
	"scholar/history"
	"scholar/llms"
	"scholar/monitoring"
	"scholar/orcid"
	"scholar/profile"
	"scholar/search"
	"scholar/services"
)

const (
	profileCacheTTL = 24 * time.Hour
	searchCacheTTL  = 30 * time.Minute
)

type Config struct {
	Logfile     string `env:"LOGFILE,notEmpty" envDefault:"scholar_backend.log"`
	CachePath   string `env:"CACHE_PATH,notEmpty" envDefault:"scholar_cache.db"`
	HistoryPath string `env:"HISTORY_PATH,notEmpty" envDefault:"scholar_history.db"`

	Port        int `env:"PORT" envDefault:"8000"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"9090"`

	Registry struct {
		BaseUrl      string `env:"BASE_URL,notEmpty" envDefault:"https://pub.orcid.org/v3.0"`
		TokenUrl     string `env:"TOKEN_URL,notEmpty" envDefault:"https://orcid.org/oauth/token"`
		ClientId     string `env:"CLIENT_ID,notEmpty,required"`
		ClientSecret string `env:"CLIENT_SECRET,notEmpty,required"`
	} `envPrefix:"REGISTRY_"`

	Sources struct {
		OpenAlexUrl        string `env:"OPENALEX_URL,notEmpty" envDefault:"https://api.openalex.org"`
		SemanticScholarUrl string `env:"SEMANTIC_SCHOLAR_URL,notEmpty" envDefault:"https://api.semanticscholar.org/graph/v1"`
		CrossrefUrl        string `env:"CROSSREF_URL,notEmpty" envDefault:"https://api.crossref.org"`
		Mailto             string `env:"MAILTO,notEmpty,required"`
	} `envPrefix:"SOURCES_"`

	// This variable is loaded directly by the openai client library, it is
	// listed here so that an error is raised if it's missing.
	OpenaiKey string `env:"OPENAI_API_KEY,notEmpty,required"`
}

func loadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	if err := godotenv.Load(configPath); err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

func initLogging(logFile *os.File) {
	log.SetFlags(log.Lshortfile | log.Ltime | log.Ldate)
	log.SetOutput(io.MultiWriter(logFile, os.Stderr))
	slog.Info("logging initialized", "log_file", logFile.Name())
}

func newCache[T any](db *bbolt.DB, bucket string, ttl time.Duration) *cache.Cache[T] {
	c, err := cache.NewShared[T](db, bucket, ttl)
	if err != nil {
		log.Fatalf("error initializing %s cache: %v", bucket, err)
	}
	return c
}

func main() {
	loadEnvFile()

	var config Config
	if err := env.Parse(&config); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	logFile, err := os.OpenFile(config.Logfile, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	initLogging(logFile)

	cacheDb, err := bbolt.Open(config.CachePath, 0600, nil)
	if err != nil {
		log.Fatalf("error opening cache db: %v", err)
	}
	defer cacheDb.Close()

	tokens := auth.NewTokenProvider(config.Registry.TokenUrl, config.Registry.ClientId, config.Registry.ClientSecret)
	registry := orcid.NewRemoteRegistry(config.Registry.BaseUrl, tokens)

	authorCache := newCache[[]api.Publication](cacheDb, "biblio_authors", biblio.AuthorCacheTTL)
	enricher := enrich.NewOrchestrator(
		biblio.NewOpenAlex(config.Sources.OpenAlexUrl, config.Sources.Mailto, authorCache),
		biblio.NewSemanticScholar(config.Sources.SemanticScholarUrl, authorCache),
		biblio.NewCrossref(config.Sources.CrossrefUrl, config.Sources.Mailto, authorCache),
	)

	aggregator := search.NewAggregator(
		registry,
		enricher,
		newCache[orcid.Person](cacheDb, "registry_persons", profileCacheTTL),
		newCache[[]api.ResearcherCandidate](cacheDb, "search_results", searchCacheTTL),
	)
	builder := profile.NewBuilder(registry, enricher, newCache[api.ResearcherProfile](cacheDb, "profiles", profileCacheTTL))

	store, err := history.Open(config.HistoryPath)
	if err != nil {
		log.Fatalf("error opening history store: %v", err)
	}

	backend := services.NewBackendService(aggregator, builder, llms.New(), store)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(monitoring.HandlerMetrics)

	r.Mount("/api", backend.Routes())

	monitoring.ExposeBackendMetrics(config.MetricsPort)

	slog.Info("starting server", "port", config.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), r); err != nil {
		log.Fatalf("listen and serve returned error: %v", err)
	}
}
