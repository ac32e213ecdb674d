package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type devices struct{ db *sql.DB }

func (d *devices) Upsert(ctx context.Context, m *model.Device) (*model.Device, error) {
	row := d.db.QueryRowContext(ctx, `
		INSERT INTO devices (device_id, device_type, battery_pct, charging, volume, brightness, wifi_ssid, wifi_rssi, online, last_active_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (device_id) DO UPDATE SET
			device_type=$2, battery_pct=$3, charging=$4, volume=$5, brightness=$6,
			wifi_ssid=$7, wifi_rssi=$8, online=$9, last_active_time=now()
		RETURNING creation_time, last_active_time
	`, m.ID, m.Type, m.Telemetry.BatteryPct, m.Telemetry.Charging, m.Telemetry.Volume,
		m.Telemetry.Brightness, m.Telemetry.WifiSSID, m.Telemetry.WifiRSSI, m.Online)

	out := *m
	if err := row.Scan(&out.CreatedAt, &out.LastActiveAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *devices) Get(ctx context.Context, deviceID string) (*model.Device, error) {
	var out model.Device
	row := d.db.QueryRowContext(ctx, `
		SELECT device_id, device_type, battery_pct, charging, volume, brightness, wifi_ssid, wifi_rssi,
		       online, last_active_time, creation_time
		FROM devices WHERE device_id=$1
	`, deviceID)
	if err := row.Scan(&out.ID, &out.Type, &out.Telemetry.BatteryPct, &out.Telemetry.Charging,
		&out.Telemetry.Volume, &out.Telemetry.Brightness, &out.Telemetry.WifiSSID, &out.Telemetry.WifiRSSI,
		&out.Online, &out.LastActiveAt, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *devices) SetChallenge(ctx context.Context, deviceID, challenge string, exp time.Time) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE devices SET challenge=$2, challenge_exp=$3 WHERE device_id=$1
	`, deviceID, challenge, exp)
	return err
}

func (d *devices) BindOwner(ctx context.Context, deviceID, userID string, isOwner bool) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO device_owners (device_id, user_id, is_owner)
		VALUES ($1,$2,$3)
		ON CONFLICT (device_id, user_id) DO UPDATE SET is_owner=$3
	`, deviceID, userID, isOwner)
	return err
}

func (d *devices) SetTelemetry(ctx context.Context, deviceID string, t model.DeviceTelemetry, online bool) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE devices SET battery_pct=$2, charging=$3, volume=$4, brightness=$5,
			wifi_ssid=$6, wifi_rssi=$7, online=$8, last_active_time=now()
		WHERE device_id=$1
	`, deviceID, t.BatteryPct, t.Charging, t.Volume, t.Brightness, t.WifiSSID, t.WifiRSSI, online)
	return err
}
