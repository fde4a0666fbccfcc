package config

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/cometbft/cometbft/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var appConfigTemplate *template.Template

func init() {
	var err error
	if appConfigTemplate, err = template.New("appConfigFileTemplate").Parse(defaultAppConfigTemplate); err != nil {
		panic(err)
	}
}

// WriteAppConfigFile renders the [app] section and writes it to configFilePath.
func WriteAppConfigFile(configFilePath string, config *Config) {
	var buffer bytes.Buffer

	if err := appConfigTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}

	os.MustWriteFile(configFilePath, buffer.Bytes(), 0o644)
}

// Keys in the template must match the mapstructure tags of AppConfig.
//
//go:embed app.toml.tpl
var defaultAppConfigTemplate string
