package models

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/openmapping/tasking/internal/geometry"
)

// MultiPolygon is a task geometry column. It is stored as hex encoded EWKB with
// SRID 4326, which PostGIS accepts for geometry columns and SQLite keeps as text.
type MultiPolygon orb.MultiPolygon

// Orb returns the geometry as an orb value
func (m MultiPolygon) Orb() orb.MultiPolygon {
	return orb.MultiPolygon(m)
}

// Scan implements sql.Scanner
func (m *MultiPolygon) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = append([]byte(nil), v...)
	default:
		return fmt.Errorf("cannot scan %T into MultiPolygon", src)
	}

	s := ewkb.Scanner(nil)
	if err := s.Scan(data); err != nil {
		return fmt.Errorf("failed to decode geometry: %w", err)
	}
	if !s.Valid {
		*m = nil
		return nil
	}
	switch g := s.Geometry.(type) {
	case orb.MultiPolygon:
		*m = MultiPolygon(g)
	case orb.Polygon:
		*m = MultiPolygon{g}
	default:
		return fmt.Errorf("stored geometry is %T, expected MultiPolygon", s.Geometry)
	}
	return nil
}

// Value implements driver.Valuer
func (m MultiPolygon) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return ewkb.MarshalToHex(orb.MultiPolygon(m), geometry.SRIDWGS84)
}

// GormDataType implements schema.GormDataTypeInterface
func (MultiPolygon) GormDataType() string {
	return "geometry"
}

// GormDBDataType returns the column type per dialect
func (MultiPolygon) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return fmt.Sprintf("geometry(MultiPolygon,%d)", geometry.SRIDWGS84)
	default:
		return "text"
	}
}

// GormValue writes the geometry with its SRID on postgres
func (m MultiPolygon) GormValue(_ context.Context, db *gorm.DB) clause.Expr {
	v, err := m.Value()
	if err != nil {
		_ = db.AddError(err)
		return clause.Expr{SQL: "NULL"}
	}
	if v == nil {
		return clause.Expr{SQL: "NULL"}
	}
	if db.Dialector.Name() == "postgres" {
		return clause.Expr{SQL: "ST_GeomFromEWKB(decode(?, 'hex'))", Vars: []interface{}{v}}
	}
	return clause.Expr{SQL: "?", Vars: []interface{}{v}}
}
