// Package service runs a set of device connections.
//
// A Controller owns the facilities its connections share: one scheduler
// for connect, timeout and keepalive timers, and one key-sequential
// executor that delivers every device's packets in order. It keeps a
// snapshot of each device (status, properties, entities and last known
// states) for the command-line tool and its HTTP API, and forwards
// everything to optional per-device collaborators.
//
// Example usage:
//
//	ctrl := service.New(service.Config{Logger: logger})
//	defer ctrl.Close()
//
//	cfg := connection.DefaultConfig()
//	cfg.Name = "kitchen"
//	cfg.Host = "kitchen.local"
//	cfg.EncryptionKey = key
//	if err := ctrl.Add(cfg); err != nil {
//		return err
//	}
//	ctrl.Command("kitchen", entity.ChannelMeta{Kind: entity.KindSwitch, Key: 7}, entity.OnOff(true))
package service
