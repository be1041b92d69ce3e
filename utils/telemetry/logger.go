package telemetry

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "telemetry")
