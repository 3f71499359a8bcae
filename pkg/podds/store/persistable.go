// Package store keeps an audit trail of simulations in SQLite so a result can
// be looked up later and checked against a fresh recomputation.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/richard-senior/podds/internal/logger"
)

var ErrNotFound = errors.New("record not found")

// Persistable is implemented by anything stored through the struct tag mapper.
// Fields are mapped with the tags column, dbtype, primary and index; fields
// without a dbtype are not persisted.
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]any
	SetPrimaryKey(map[string]any) error
	BeforeSave() error
	AfterSave() error
	BeforeDelete() error
	AfterDelete() error
}

// Store wraps one SQLite database
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: writes are serialised and :memory: stays a single database
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database initialized successfully", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for ad hoc queries
func (s *Store) DB() *sql.DB { return s.db }

// CreateTable creates the table and indexes described by obj's struct tags
func (s *Store) CreateTable(obj Persistable) error {
	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	for _, query := range generateIndexSQL(obj, tableName) {
		logger.Debug("Creating index with SQL", query)
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", tableName, err)
		}
	}
	return nil
}

// column describes one persisted struct field
type column struct {
	name    string
	dbType  string
	primary bool
	index   bool
	field   int
}

func structType(obj any) reflect.Type {
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func structValue(obj any) reflect.Value {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v
}

// columns lists the persisted fields of obj in declaration order
func columns(obj any) []column {
	t := structType(obj)
	var out []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("db") == "-" {
			continue
		}
		dbType := f.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}
		name := f.Tag.Get("column")
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		out = append(out, column{
			name:    name,
			dbType:  dbType,
			primary: f.Tag.Get("primary") == "true",
			index:   f.Tag.Get("index") == "true",
			field:   i,
		})
	}
	return out
}

func generateCreateTableSQL(obj any, tableName string) string {
	var defs, primaryKeys []string
	for _, c := range columns(obj) {
		dbType := c.dbType
		if c.primary {
			primaryKeys = append(primaryKeys, c.name)
			dbType = strings.TrimSpace(strings.ReplaceAll(dbType, "PRIMARY KEY", ""))
		}
		defs = append(defs, c.name+" "+dbType)
	}
	if len(primaryKeys) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(defs, ", "))
}

func generateIndexSQL(obj any, tableName string) []string {
	var out []string
	for _, c := range columns(obj) {
		if !c.index {
			continue
		}
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", tableName, c.name, tableName, c.name))
	}
	return out
}

// Save inserts obj, or updates it when its primary key already exists
func (s *Store) Save(obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}
	exists, err := s.Exists(obj)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if exists {
		err = s.update(obj)
	} else {
		err = s.insert(obj)
	}
	if err != nil {
		return err
	}
	if err := obj.AfterSave(); err != nil {
		return fmt.Errorf("after save hook failed: %w", err)
	}
	return nil
}

func (s *Store) insert(obj Persistable) error {
	v := structValue(obj)
	var names, placeholders []string
	var values []any
	for _, c := range columns(obj) {
		names = append(names, c.name)
		placeholders = append(placeholders, "?")
		values = append(values, v.Field(c.field).Interface())
	}
	tableName := obj.GetTableName()
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableName, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	logger.Debug("Insert SQL", query)

	if _, err := s.db.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableName, err)
	}
	return nil
}

func (s *Store) update(obj Persistable) error {
	v := structValue(obj)
	var pairs []string
	var values []any
	for _, c := range columns(obj) {
		if c.primary {
			continue
		}
		pairs = append(pairs, c.name+" = ?")
		values = append(values, v.Field(c.field).Interface())
	}
	where, whereValues := buildWhereClause(obj.GetPrimaryKey())
	values = append(values, whereValues...)

	tableName := obj.GetTableName()
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(pairs, ", "), where)
	logger.Debug("Update SQL", query)

	if _, err := s.db.Exec(query, values...); err != nil {
		return fmt.Errorf("failed to update %s: %w", tableName, err)
	}
	return nil
}

// Exists reports whether a row with obj's primary key is present
func (s *Store) Exists(obj Persistable) (bool, error) {
	tableName := obj.GetTableName()
	where, values := buildWhereClause(obj.GetPrimaryKey())
	var count int
	err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, where), values...).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// Delete removes obj's row
func (s *Store) Delete(obj Persistable) error {
	if err := obj.BeforeDelete(); err != nil {
		return fmt.Errorf("before delete hook failed: %w", err)
	}
	tableName := obj.GetTableName()
	where, values := buildWhereClause(obj.GetPrimaryKey())
	if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, where), values...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	if err := obj.AfterDelete(); err != nil {
		return fmt.Errorf("after delete hook failed: %w", err)
	}
	return nil
}

// FindByPrimaryKey fills obj from the row matching primaryKey
func (s *Store) FindByPrimaryKey(obj Persistable, primaryKey map[string]any) error {
	tableName := obj.GetTableName()
	names, dest := selectData(obj)
	where, values := buildWhereClause(primaryKey)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(names, ", "), tableName, where)
	logger.Debug("FindByPrimaryKey SQL", query)

	err := s.db.QueryRow(query, values...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w in %s", ErrNotFound, tableName)
	}
	if err != nil {
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// FindWhere returns new instances of obj's type for every row matching the
// where clause. An empty clause matches everything.
func (s *Store) FindWhere(obj Persistable, whereClause string, args ...any) ([]any, error) {
	tableName := obj.GetTableName()
	names, _ := selectData(obj)
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), tableName)
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	logger.Debug("FindWhere SQL", query)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	t := structType(obj)
	var results []any
	for rows.Next() {
		item := reflect.New(t).Interface()
		_, dest := selectData(item)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// selectData returns column names and scan destinations; obj must be a pointer
func selectData(obj any) ([]string, []any) {
	v := structValue(obj)
	var names []string
	var dest []any
	for _, c := range columns(obj) {
		names = append(names, c.name)
		dest = append(dest, v.Field(c.field).Addr().Interface())
	}
	return names, dest
}

// buildWhereClause builds "a = ? AND b = ?" in column order
func buildWhereClause(primaryKey map[string]any) (string, []any) {
	keys := make([]string, 0, len(primaryKey))
	for k := range primaryKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, 0, len(keys))
	values := make([]any, 0, len(keys))
	for _, k := range keys {
		conditions = append(conditions, k+" = ?")
		values = append(values, primaryKey[k])
	}
	return strings.Join(conditions, " AND "), values
}
