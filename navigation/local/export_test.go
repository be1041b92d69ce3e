package local

var ComputeConnection = computeConnection
