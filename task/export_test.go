package task

var Heartbeat = heartbeat
