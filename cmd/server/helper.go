package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// ServerConfig is the on-disk TOML shape. Command line flags overwrite the
// corresponding fields after the file is loaded.
type ServerConfig struct {
	ServerPort      string
	Verbosity       int
	RunAsHttp       bool
	CertificateFile string
	KeyFile         string
	CORS            string
	PageCache       PageCacheConfig
	Uns             UnsServerConfig
	Zns             ZnsServerConfig
}

type UnsServerConfig struct {
	Layer1 LayerServerConfig
	Layer2 LayerServerConfig
}

type LayerServerConfig struct {
	Network     string
	RPC         string
	ProxyReader string
	Registry    string
}

type ZnsServerConfig struct {
	Network  string
	RPC      string
	Registry string
}

type PageCacheConfig struct {
	MaxEntries           int
	CacheDurationSeconds int
}

type stringFlags struct {
	set   bool
	value string
}

func (sf *stringFlags) String() string {
	return sf.value
}

func (sf *stringFlags) Set(value string) error {
	sf.value = value
	sf.set = true
	return nil
}

// loadConfig loads the TOML config file from provided path if it exists
func loadConfig(file string, cfg *ServerConfig) error {
	if file == "" {
		return fmt.Errorf("config file not specified")
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}

	defer func(f *os.File) {
		err = f.Close()
	}(f)

	err = toml.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = fmt.Errorf(file + ", " + err.Error())
	}
	return err
}
