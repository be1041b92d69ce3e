package controller

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "controller")
