package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	golanglru2 "github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"

	"github.com/ethstorage/domain-resolution/pkg/resolution"
)

var (
	verbosity            = flag.Int("verbosity", 4, "verbosity (0 = panic, 1 = fatal, 2 = error, 3 = warn, 4 = info, 5 = debug, 6 = trace")
	configurationFile    = flag.String("config", "config.toml", "configuration file")
	versionCheck         = flag.Bool("version", false, "print version of resolution server")
	dbToken              = flag.String("dbToken", "", "influxDB auth token")
	cacheDurationMinutes = flag.Int("cacheDurationMinutes", 60, "cache duration in minutes; default to 60")
	writeAPI             api.WriteAPIBlocking
	certificateFile      = stringFlags{}
	keyFile              = stringFlags{}
	port                 = stringFlags{value: "80"}
	cors                 = stringFlags{value: "*"}
	config               ServerConfig
	resolver             domainResolver
	pageCache            *golanglru2.LRU[PageCacheKey, PageCacheEntry]
	majorVersion         = "0"
	minorVersion         = "1"
	patchVersion         = "0"
	releaseInfo          = "beta"
	commitInfo           string
)

// versionInfo returns the semantic versioning info of the running server
func versionInfo() string {
	return fmt.Sprintf("%s.%s.%s-%s+%s", majorVersion, minorVersion, patchVersion, releaseInfo, commitInfo)
}

func initConfig() {
	flag.Var(&port, "port", "server port")
	flag.Var(&certificateFile, "cert", "certificate file")
	flag.Var(&keyFile, "key", "key file")
	flag.Var(&cors, "cors", "comma separated list of domains from which to accept cross origin requests")
	flag.Parse()

	// read from config file
	config = ServerConfig{}
	config.Verbosity = *verbosity
	err := loadConfig(*configurationFile, &config)
	if err != nil {
		log.Fatalf("Cannot load config: %v\n", err)
	}
	// read arguments from command line and overwrite corresponding settings in config file
	if certificateFile.set {
		config.CertificateFile = certificateFile.value
	}
	if keyFile.set {
		config.KeyFile = keyFile.value
	}
	if port.set {
		config.ServerPort = port.value
	}
	if cors.set {
		config.CORS = cors.value
	}
	// Page cache size: not use the default of unlimited, will only end in crashed servers
	if config.PageCache.MaxEntries == 0 {
		config.PageCache.MaxEntries = 1000
	}
	if config.PageCache.CacheDurationSeconds == 0 {
		config.PageCache.CacheDurationSeconds = *cacheDurationMinutes * 60
	}
}

func initResolution() {
	r, err := resolution.New(resolution.Config{
		Uns: resolution.UnsConfig{
			Layer1: resolution.UnsLayerConfig{
				Network:     config.Uns.Layer1.Network,
				ProviderUrl: config.Uns.Layer1.RPC,
				ProxyReader: config.Uns.Layer1.ProxyReader,
				Registry:    config.Uns.Layer1.Registry,
			},
			Layer2: resolution.UnsLayerConfig{
				Network:     config.Uns.Layer2.Network,
				ProviderUrl: config.Uns.Layer2.RPC,
				ProxyReader: config.Uns.Layer2.ProxyReader,
				Registry:    config.Uns.Layer2.Registry,
			},
		},
		Zns: resolution.ZnsConfig{
			Network:     config.Zns.Network,
			ProviderUrl: config.Zns.RPC,
			Registry:    config.Zns.Registry,
		},
	})
	if err != nil {
		log.Fatalf("Cannot create resolution client: %v\n", err)
	}
	resolver = r

	// Init the LRU page cache
	pageCache = golanglru2.NewLRU[PageCacheKey, PageCacheEntry](config.PageCache.MaxEntries, nil,
		time.Duration(config.PageCache.CacheDurationSeconds)*time.Second)
}

func initStats() {
	if len(*dbToken) > 0 {
		client := influxdb2.NewClient("http://localhost:8086", *dbToken)
		writeAPI = client.WriteAPIBlocking("domains", "bucket0")
	}
}

func main() {
	if *versionCheck {
		fmt.Println("resolution server version", versionInfo())
		return
	}
	initConfig()
	log.SetLevel(log.Level(config.Verbosity))
	log.SetFormatter(&log.TextFormatter{TimestampFormat: "2006-01-02 15:04:05", FullTimestamp: true})
	log.Infof("config: %+v\n", config)
	initResolution()
	initStats()
	http.HandleFunc("/domains/", handle)
	http.HandleFunc("/_version", func(w http.ResponseWriter, req *http.Request) {
		_, err := fmt.Fprintf(w, "resolution server version %s", versionInfo())
		if err != nil {
			log.Errorf("Cannot write version info: %v\n", err)
			return
		}
	})

	if config.RunAsHttp || config.CertificateFile == "" {
		log.Infof("Serving on http://localhost:%v\n", config.ServerPort)
		err := http.ListenAndServe(":"+config.ServerPort, nil)
		if err != nil {
			log.Fatalf("Cannot start server: %v\n", err)
			return
		}
	} else {
		log.Infof("Serving on https://localhost:%v\n", config.ServerPort)
		err := http.ListenAndServeTLS(":"+config.ServerPort, config.CertificateFile, config.KeyFile, nil)
		if err != nil {
			log.Fatalf("Cannot start server: %v\n", err)
		}
	}
}
