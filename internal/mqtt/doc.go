// Package mqtt publishes bench run events to an MQTT broker.
//
// It wraps paho.mqtt.golang with the pieces a test bench needs: a status
// topic carrying a retained online/offline marker (with a Last Will so a
// crashed run shows up as offline), and a result topic receiving one
// message per reported assertion.
//
// Topic layout:
//
//	<prefix>/<bench>/status   retained run status
//	<prefix>/<bench>/result   one JSON message per result
package mqtt
