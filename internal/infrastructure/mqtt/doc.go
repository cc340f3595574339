// Package mqtt provides MQTT client connectivity for SkyLink Core.
//
// MQTT carries two conversations:
//
//	SkyLink Core ↔ broker ↔ device link bridge   (LinkTopics, skylink/link/...)
//	SkyLink Core ↔ broker ↔ plugins and overlays (Topics, skylink/event, command, ...)
//
// Client keeps subscriptions across reconnects, announces Presence on
// skylink/system/status (with an offline last will) and exposes counters
// through Stats. Components that only send depend on Publisher and encode
// their messages with PublishJSON.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = mqtt.PublishJSON(client, mqtt.Topics{}.Event("armed"), ev, 1, false)
package mqtt
