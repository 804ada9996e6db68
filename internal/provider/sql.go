package provider

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/nkovacs/adnsd/internal/wire"
	"github.com/nkovacs/adnsd/internal/zone"
)

// pollInterval is how often SQL polls for zone changes made outside of
// the updates channel (e.g. a row edited directly in the database). The
// reference implementation this provider is adapted from instead used
// Postgres LISTEN/NOTIFY; no driver in this module's dependency set
// speaks that protocol, so polling stands in for it.
const pollInterval = 2 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS revision (id INTEGER PRIMARY KEY CHECK (id = 0), value INTEGER NOT NULL);
INSERT OR IGNORE INTO revision (id, value) VALUES (0, 0);
CREATE TABLE IF NOT EXISTS zones (
	id TEXT PRIMARY KEY,
	domain TEXT NOT NULL UNIQUE,
	authoritative INTEGER NOT NULL DEFAULT 1,
	allow_md5_tsig INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS zone_soas (
	zone_id TEXT PRIMARY KEY REFERENCES zones(id),
	mname TEXT NOT NULL, rname TEXT NOT NULL, serial INTEGER NOT NULL,
	refresh INTEGER NOT NULL, retry INTEGER NOT NULL, expire INTEGER NOT NULL, minimum INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS zone_nameservers (
	id TEXT PRIMARY KEY, zone_id TEXT NOT NULL REFERENCES zones(id), name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS zone_tsig_keys (
	id TEXT PRIMARY KEY, zone_id TEXT NOT NULL REFERENCES zones(id), name TEXT NOT NULL,
	algorithm TEXT NOT NULL, secret TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS zone_records (
	zone_id TEXT NOT NULL REFERENCES zones(id), ordering INTEGER NOT NULL,
	name TEXT NOT NULL, dns_type TEXT NOT NULL, ttl INTEGER NOT NULL, data TEXT NOT NULL,
	PRIMARY KEY (zone_id, ordering)
);
`

// SQL serves a zone (and its delegated sub-zones) persisted in a sqlite3
// database, re-publishing a snapshot after every applied update and on a
// poll interval in case the data changed by another means.
type SQL struct {
	DSN string

	db *sql.DB
}

// Run implements ZoneProvider.
func (s *SQL) Run(ctx context.Context, snapshots chan<- *zone.Zone, updates <-chan Update) {
	db, err := sql.Open("sqlite3", s.DSN)
	if err != nil {
		log.Errorf("sql zone provider: failed to open %s: %v", s.DSN, err)
		return
	}
	defer db.Close()
	s.db = db

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Errorf("sql zone provider: failed to apply schema: %v", err)
		return
	}

	lastRevision := -1
	publish := func() bool {
		z, rev, err := s.load(ctx)
		if err != nil {
			log.Errorf("sql zone provider: failed to load zone: %v", err)
			return true
		}
		if rev == lastRevision {
			return true
		}
		lastRevision = rev
		select {
		case snapshots <- z:
			return true
		case <-ctx.Done():
			return false
		}
	}
	if !publish() {
		return
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := s.applyUpdate(ctx, update.Update); err != nil {
				log.Errorf("sql zone provider: failed to apply update to %s: %v", update.Update.ZoneName, err)
				continue
			}
			if !publish() {
				return
			}
			close(update.Ack)
		case <-ticker.C:
			if !publish() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *SQL) bumpRevision(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "UPDATE revision SET value = value + 1 WHERE id = 0")
	return err
}

func (s *SQL) currentRevision(ctx context.Context) (int, error) {
	var rev int
	err := s.db.QueryRowContext(ctx, "SELECT value FROM revision WHERE id = 0").Scan(&rev)
	return rev, err
}

// ensureZoneRow returns the id of the zones row for domain, creating it
// (with default authoritative=true) if it doesn't exist yet.
func (s *SQL) ensureZoneRow(ctx context.Context, tx *sql.Tx, domain wire.Name) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, "SELECT id FROM zones WHERE domain = ?", domain.String()).Scan(&id)
	if err == sql.ErrNoRows {
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx, "INSERT INTO zones (id, domain, authoritative, allow_md5_tsig) VALUES (?, ?, 1, 0)", id, domain.String())
		if err != nil {
			return "", err
		}
		return id, nil
	}
	return id, err
}

func (s *SQL) applyUpdate(ctx context.Context, update zone.ZoneUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	zoneID, err := s.ensureZoneRow(ctx, tx, update.ZoneName)
	if err != nil {
		return err
	}

	z, err := s.loadZoneRow(ctx, tx, zoneID)
	if err != nil {
		return err
	}
	for _, action := range update.Actions {
		action.ApplyTo(z, update.ZoneName)
	}
	if err := s.saveZoneRecords(ctx, tx, zoneID, z); err != nil {
		return err
	}
	if err := s.bumpRevision(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQL) loadZoneRow(ctx context.Context, tx *sql.Tx, zoneID string) (*zone.Zone, error) {
	z := zone.New()

	var authoritative, allowMD5 int
	if err := tx.QueryRowContext(ctx, "SELECT authoritative, allow_md5_tsig FROM zones WHERE id = ?", zoneID).Scan(&authoritative, &allowMD5); err != nil {
		return nil, err
	}
	z.Authoritative = authoritative != 0
	z.AllowMD5Tsig = allowMD5 != 0

	var mname, rname string
	var serial, refresh, retry, expire, minimum int64
	err := tx.QueryRowContext(ctx, "SELECT mname, rname, serial, refresh, retry, expire, minimum FROM zone_soas WHERE zone_id = ?", zoneID).
		Scan(&mname, &rname, &serial, &refresh, &retry, &expire, &minimum)
	if err == nil {
		m, errM := wire.ParseName(mname)
		r, errR := wire.ParseName(rname)
		if errM == nil && errR == nil {
			z.SOA = &wire.SOAData{
				MName: m, RName: r, Serial: uint32(serial),
				Refresh: uint32(refresh), Retry: uint32(retry), Expire: uint32(expire), Minimum: uint32(minimum),
			}
		}
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	nsRows, err := tx.QueryContext(ctx, "SELECT name FROM zone_nameservers WHERE zone_id = ?", zoneID)
	if err != nil {
		return nil, err
	}
	for nsRows.Next() {
		var name string
		if err := nsRows.Scan(&name); err != nil {
			nsRows.Close()
			return nil, err
		}
		if n, err := wire.ParseName(name); err == nil {
			z.Nameservers = append(z.Nameservers, n)
		}
	}
	nsRows.Close()

	keyRows, err := tx.QueryContext(ctx, "SELECT name, algorithm, secret FROM zone_tsig_keys WHERE zone_id = ?", zoneID)
	if err != nil {
		return nil, err
	}
	for keyRows.Next() {
		var name, algorithm, secretB64 string
		if err := keyRows.Scan(&name, &algorithm, &secretB64); err != nil {
			keyRows.Close()
			return nil, err
		}
		secret, err := base64.StdEncoding.DecodeString(secretB64)
		if err != nil {
			log.Warnf("sql zone provider: skipping tsig key %q with unreadable secret: %v", name, err)
			continue
		}
		alg, err := wire.ParseName(algorithm)
		if err != nil {
			log.Warnf("sql zone provider: skipping tsig key %q with bad algorithm %q: %v", name, algorithm, err)
			continue
		}
		if z.TsigKeys == nil {
			z.TsigKeys = make(map[string]zone.TsigKey)
		}
		z.TsigKeys[name] = zone.TsigKey{Secret: secret, Algorithm: alg}
	}
	keyRows.Close()

	recRows, err := tx.QueryContext(ctx, "SELECT name, dns_type, ttl, data FROM zone_records WHERE zone_id = ? ORDER BY ordering ASC", zoneID)
	if err != nil {
		return nil, err
	}
	defer recRows.Close()
	for recRows.Next() {
		var name, dnsType, data string
		var ttl int64
		if err := recRows.Scan(&name, &dnsType, &ttl, &data); err != nil {
			return nil, err
		}
		n, err := wire.ParseName(name)
		if err != nil {
			log.Warnf("sql zone provider: skipping record with bad name %q: %v", name, err)
			continue
		}
		typ, err := wire.ParseTypeText(dnsType)
		if err != nil {
			log.Warnf("sql zone provider: skipping record with bad type %q: %v", dnsType, err)
			continue
		}
		rdata, err := wire.ParseRecordDataText(typ, data)
		if err != nil {
			log.Warnf("sql zone provider: skipping record %s %s with bad data %q: %v", name, dnsType, data, err)
			continue
		}
		z.Records = append(z.Records, wire.Record{Name: n, Type: typ, Class: wire.ClassIN, TTL: uint32(ttl), Data: rdata})
	}
	return z, nil
}

func (s *SQL) saveZoneRecords(ctx context.Context, tx *sql.Tx, zoneID string, z *zone.Zone) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM zone_records WHERE zone_id = ?", zoneID); err != nil {
		return err
	}
	for i, r := range z.Records {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO zone_records (zone_id, ordering, name, dns_type, ttl, data) VALUES (?, ?, ?, ?, ?, ?)",
			zoneID, i, r.Name.String(), r.Type.String(), r.TTL, r.Data.String(),
		); err != nil {
			return err
		}
	}
	if z.SOA != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zone_soas (zone_id, mname, rname, serial, refresh, retry, expire, minimum) VALUES (?,?,?,?,?,?,?,?)
			 ON CONFLICT(zone_id) DO UPDATE SET mname=excluded.mname, rname=excluded.rname, serial=excluded.serial,
			 refresh=excluded.refresh, retry=excluded.retry, expire=excluded.expire, minimum=excluded.minimum`,
			zoneID, z.SOA.MName.String(), z.SOA.RName.String(), z.SOA.Serial, z.SOA.Refresh, z.SOA.Retry, z.SOA.Expire, z.SOA.Minimum,
		); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM zone_nameservers WHERE zone_id = ?", zoneID); err != nil {
		return err
	}
	for _, ns := range z.Nameservers {
		if _, err := tx.ExecContext(ctx, "INSERT INTO zone_nameservers (id, zone_id, name) VALUES (?, ?, ?)", uuid.NewString(), zoneID, ns.String()); err != nil {
			return err
		}
	}
	return nil
}

// load reads the entire zone tree (root plus every delegated sub-zone row
// in the zones table) and the current revision counter.
func (s *SQL) load(ctx context.Context) (*zone.Zone, int, error) {
	rev, err := s.currentRevision(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, domain FROM zones")
	if err != nil {
		return nil, 0, err
	}
	type zoneRow struct {
		id, domain string
	}
	var zoneRows []zoneRow
	for rows.Next() {
		var zr zoneRow
		if err := rows.Scan(&zr.id, &zr.domain); err != nil {
			rows.Close()
			return nil, 0, err
		}
		zoneRows = append(zoneRows, zr)
	}
	rows.Close()

	var root *zone.Zone
	subZones := map[string]*zone.Zone{}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()
	for _, zr := range zoneRows {
		domain, err := wire.ParseName(zr.domain)
		if err != nil {
			log.Warnf("sql zone provider: skipping zone with bad domain %q: %v", zr.domain, err)
			continue
		}
		z, err := s.loadZoneRow(ctx, tx, zr.id)
		if err != nil {
			return nil, 0, fmt.Errorf("load zone %s: %w", zr.domain, err)
		}
		if domain.IsRoot() {
			root = z
		} else {
			subZones[zr.domain] = z
		}
	}
	if root == nil {
		root = zone.New()
	}
	for domain, z := range subZones {
		name, err := wire.ParseName(domain)
		if err != nil {
			continue
		}
		root.SetChild(name, z)
	}
	return root, rev, nil
}
