package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/navstack/task"
	"github.com/tsinghua-fib-lab/navstack/utils/config"
	"github.com/tsinghua-fib-lab/navstack/utils/input"
	"github.com/tsinghua-fib-lab/navstack/utils/telemetry"
	"gopkg.in/yaml.v2"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 路网图导出路径（Graphviz DOT），为空则不导出
	dumpGraph = flag.String("dump-graph", "", "write the road graph in DOT format to this path")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "navstack")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("%+v", c)

	data, err := input.Load(context.Background(), c.Input)
	if err != nil {
		log.Panicf("input load err: %v", err)
	}

	var recorder *telemetry.Recorder
	if c.Output.SQLite != "" {
		recorder, err = telemetry.Open(c.Output.SQLite, string(c.Scenario.Kind), *configPath)
		if err != nil {
			log.Panicf("telemetry err: %v", err)
		}
	}

	t, err := task.NewContext(c, data, recorder)
	if err != nil {
		if recorder != nil {
			recorder.Close()
		}
		log.Panicf("task init err: %v", err)
	}
	if *dumpGraph != "" {
		dot, err := t.GlobalPlanner().MarshalDOT("road_graph")
		if err != nil {
			log.Panicf("dump graph err: %v", err)
		}
		if err := os.WriteFile(*dumpGraph, dot, 0o644); err != nil {
			log.Panicf("dump graph err: %v", err)
		}
		log.Infof("road graph written to %s", *dumpGraph)
	}

	t.Run()
}
