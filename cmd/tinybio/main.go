//
// Copyright (c) 2024 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/NillionNetwork/tinybio.
//
// SPDX-License-Identifier: Apache-2.0
//
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/NillionNetwork/tinybio/pkg/integration"
	l "github.com/NillionNetwork/tinybio/pkg/logger"
	. "github.com/NillionNetwork/tinybio/pkg/types"
	"github.com/NillionNetwork/tinybio/pkg/vector"
	"github.com/asaskevich/govalidator"
)

const defaultConfig = "/etc/tinybio/config.json"

func main() {
	logger, err := l.NewDevelopmentLogger()
	if err != nil {
		panic(err)
	}
	path := defaultConfig
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	conf, err := ParseConfig(path)
	if err != nil {
		panic(err)
	}
	logger.Debugf("Starting with the config:\n%+v", conf)
	typedConfig, err := InitTypedConfig(conf)
	if err != nil {
		panic(err)
	}
	orchestrator, err := integration.NewOrchestrator(typedConfig, logger)
	if err != nil {
		panic(err)
	}
	distance, err := orchestrator.Run(typedConfig.Registration, typedConfig.Authentication)
	if err != nil {
		panic(err)
	}
	logger.Infof("Revealed squared distance: %g", distance)
}

// ParseConfig reads the configuration file content.
func ParseConfig(path string) (*Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Config
	err = json.Unmarshal(bytes, &conf)
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

// InitTypedConfig validates the parsed configuration and converts the string
// parameters to the types used internally, e.g. string -> time.Duration.
func InitTypedConfig(conf *Config) (*TypedConfig, error) {
	if _, err := govalidator.ValidateStruct(conf); err != nil {
		return nil, err
	}
	if conf.NodeCount < 2 {
		return nil, fmt.Errorf("nodeCount must be at least 2, got %d", conf.NodeCount)
	}
	if conf.VectorLength <= 0 {
		return nil, fmt.Errorf("vectorLength must be positive, got %d", conf.VectorLength)
	}
	if len(conf.Registration) != conf.VectorLength || len(conf.Authentication) != conf.VectorLength {
		return nil, fmt.Errorf("descriptors must have %d coordinates, got %d and %d",
			conf.VectorLength, len(conf.Registration), len(conf.Authentication))
	}
	stateTimeout := 10 * time.Second
	if conf.StateTimeout != "" {
		parsed, err := time.ParseDuration(conf.StateTimeout)
		if err != nil {
			return nil, err
		}
		stateTimeout = parsed
	}
	return &TypedConfig{
		NodeCount:      conf.NodeCount,
		VectorLength:   conf.VectorLength,
		Seed:           conf.Seed,
		BusSize:        conf.BusSize,
		StateTimeout:   stateTimeout,
		Registration:   vector.Vector(conf.Registration),
		Authentication: vector.Vector(conf.Authentication),
	}, nil
}
