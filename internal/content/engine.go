package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	dbutil "github.com/folioworks/portfolio-api/internal/db"
	"github.com/folioworks/portfolio-api/internal/naming"
	"github.com/folioworks/portfolio-api/internal/storage"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is a database row keyed by column name.
type Row = map[string]any

// identPattern restricts free-form column names on parent row patches.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Engine performs generic CRUD over the section registry. Every write is a
// single-row statement; there are no multi-row transactions.
type Engine struct {
	db    *gorm.DB
	store storage.Store
	now   func() time.Time
}

// NewEngine constructs an engine. store may be nil, in which case uploads fail
// with storage.ErrNotConfigured and deletions skip asset cleanup.
func NewEngine(db *gorm.DB, store storage.Store) *Engine {
	return &Engine{db: db, store: store, now: time.Now}
}

// DeleteOutcome reports a deletion together with the best-effort asset cleanup.
type DeleteOutcome struct {
	ID             int64    `json:"id"`
	Deleted        bool     `json:"deleted"`
	RemovedAssets  []string `json:"removedAssets,omitempty"`
	StorageWarning string   `json:"storageWarning,omitempty"`
}

// UploadInput describes a file to store.
type UploadInput struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Section     string
	SubType     string
	Path        string
}

// UploadResult is the stored location of an uploaded asset.
type UploadResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

func (e *Engine) conn(ctx context.Context) (*gorm.DB, error) {
	if e == nil || e.db == nil {
		return nil, ErrNotConfigured
	}
	return e.db.WithContext(ctx), nil
}

func (e *Engine) quote(name string) string {
	return dbutil.QuoteIdent(e.db, name)
}

func eq(column string, value any) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: column}, Value: value}
}

var orderByID = clause.OrderByColumn{Column: clause.Column{Name: ColumnID}}

// liveScope restricts a query to the default-language, active rows.
func liveScope(q *gorm.DB) *gorm.DB {
	return q.Where(eq(ColumnLanguageCode, DefaultLanguage)).Where(eq(ColumnIsActive, true))
}

// ListRows returns the live parent rows of a section ordered by id.
func (e *Engine) ListRows(ctx context.Context, section Section) ([]Row, error) {
	schema, err := SchemaFor(section)
	if err != nil {
		return nil, err
	}
	q, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if errFind := liveScope(q.Table(schema.Table)).Order(orderByID).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("list %s rows: %w", schema.Table, errFind)
	}
	return rows, nil
}

// DefaultRow returns the live parent row at index (ordered by id).
func (e *Engine) DefaultRow(ctx context.Context, section Section, index int) (Row, error) {
	schema, err := SchemaFor(section)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: row index %d for section %q", ErrNotFound, index, string(section))
	}
	q, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Row
	errFind := liveScope(q.Table(schema.Table)).Order(orderByID).Offset(index).Limit(1).Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("load %s default row: %w", schema.Table, errFind)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no live %s row at index %d", ErrNotFound, schema.Table, index)
	}
	return rows[0], nil
}

// PatchDefaultRow applies body to the section's default row.
func (e *Engine) PatchDefaultRow(ctx context.Context, section Section, body map[string]any) (Row, error) {
	row, err := e.DefaultRow(ctx, section, 0)
	if err != nil {
		return nil, err
	}
	id, ok := RowID(row)
	if !ok {
		return nil, fmt.Errorf("%w: default %s row has no id", ErrNotFound, string(section))
	}
	return e.PatchRow(ctx, section, id, body)
}

// PatchRow applies body to a parent row by id. The parent table's own columns
// are the contract, so the body is not whitelisted; id is never writable and
// image fields are normalized to public URLs.
func (e *Engine) PatchRow(ctx context.Context, section Section, id int64, body map[string]any) (Row, error) {
	schema, err := SchemaFor(section)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(body))
	for key, value := range body {
		if strings.EqualFold(key, ColumnID) {
			continue
		}
		if !identPattern.MatchString(key) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, key)
		}
		values[key] = value
	}
	return e.update(ctx, schema.Table, id, e.normalizeImages(values))
}

// CreateRow inserts a parent row for sections whose rows are items (gallery).
func (e *Engine) CreateRow(ctx context.Context, section Section, body map[string]any) (Row, error) {
	schema, err := e.rowItemSchema(section)
	if err != nil {
		return nil, err
	}
	values := e.normalizeImages(naming.Pick(body, schema.RowFields))
	if len(values) == 0 {
		return nil, ErrEmptyPayload
	}
	values[ColumnLanguageCode] = DefaultLanguage
	values[ColumnIsActive] = true
	return e.insert(ctx, schema.Table, values)
}

// PatchRowItem updates whitelisted fields of an item-like parent row.
func (e *Engine) PatchRowItem(ctx context.Context, section Section, id int64, body map[string]any) (Row, error) {
	schema, err := e.rowItemSchema(section)
	if err != nil {
		return nil, err
	}
	values := e.normalizeImages(naming.Pick(body, schema.RowFields))
	return e.update(ctx, schema.Table, id, values)
}

// DeleteRow removes an item-like parent row and its assets.
func (e *Engine) DeleteRow(ctx context.Context, section Section, id int64) (DeleteOutcome, error) {
	schema, err := e.rowItemSchema(section)
	if err != nil {
		return DeleteOutcome{}, err
	}
	return e.deleteWithAssets(ctx, schema.Table, id)
}

func (e *Engine) rowItemSchema(section Section) (SectionSchema, error) {
	schema, err := SchemaFor(section)
	if err != nil {
		return SectionSchema{}, err
	}
	if len(schema.RowFields) == 0 {
		return SectionSchema{}, fmt.Errorf("%w: rows of %q are not items", ErrUnsupported, string(section))
	}
	return schema, nil
}

// resolveChild returns the relation for (section, itemType).
func resolveChild(section Section, itemType string) (Relation, error) {
	schema, err := SchemaFor(section)
	if err != nil {
		return Relation{}, err
	}
	return schema.Child(itemType)
}

// resolveParentID falls back to the default row when parentID is nil.
func (e *Engine) resolveParentID(ctx context.Context, section Section, parentID *int64) (int64, error) {
	if parentID != nil {
		return *parentID, nil
	}
	row, err := e.DefaultRow(ctx, section, 0)
	if err != nil {
		return 0, err
	}
	id, ok := RowID(row)
	if !ok {
		return 0, fmt.Errorf("%w: default %s row has no id", ErrNotFound, string(section))
	}
	return id, nil
}

// ListItems returns the child rows of a parent ordered by id. Eager relations
// carry their nested rows under each nested type name.
func (e *Engine) ListItems(ctx context.Context, section Section, itemType string, parentID *int64) ([]Row, error) {
	rel, err := resolveChild(section, itemType)
	if err != nil {
		return nil, err
	}
	pid, err := e.resolveParentID(ctx, section, parentID)
	if err != nil {
		return nil, err
	}
	rows, err := e.listByForeignKey(ctx, rel, pid)
	if err != nil {
		return nil, err
	}
	if rel.Eager {
		if errAttach := e.attachNested(ctx, rel.Table, rows); errAttach != nil {
			return nil, errAttach
		}
	}
	return rows, nil
}

// CreateItem inserts a child row under parentID (or the default row).
func (e *Engine) CreateItem(ctx context.Context, section Section, itemType string, parentID *int64, body map[string]any) (Row, error) {
	rel, err := resolveChild(section, itemType)
	if err != nil {
		return nil, err
	}
	values := e.normalizeImages(naming.Pick(body, rel.Fields))
	if len(values) == 0 {
		return nil, ErrEmptyPayload
	}
	pid, err := e.resolveParentID(ctx, section, parentID)
	if err != nil {
		return nil, err
	}
	values[rel.ForeignKey] = pid
	return e.insert(ctx, rel.Table, values)
}

// PatchItem updates whitelisted fields of a child row.
func (e *Engine) PatchItem(ctx context.Context, section Section, itemType string, id int64, body map[string]any) (Row, error) {
	rel, err := resolveChild(section, itemType)
	if err != nil {
		return nil, err
	}
	return e.update(ctx, rel.Table, id, e.normalizeImages(naming.Pick(body, rel.Fields)))
}

// DeleteItem removes a child row after a best-effort cleanup of its assets.
func (e *Engine) DeleteItem(ctx context.Context, section Section, itemType string, id int64) (DeleteOutcome, error) {
	rel, err := resolveChild(section, itemType)
	if err != nil {
		return DeleteOutcome{}, err
	}
	return e.deleteWithAssets(ctx, rel.Table, id)
}

// ListNested returns the nested rows under a child row.
func (e *Engine) ListNested(ctx context.Context, parentTable string, parentID int64, nestedType string) ([]Row, error) {
	rel, err := Nested(parentTable, nestedType)
	if err != nil {
		return nil, err
	}
	return e.listByForeignKey(ctx, rel, parentID)
}

// CreateNested inserts a nested row under a child row.
func (e *Engine) CreateNested(ctx context.Context, parentTable string, parentID int64, nestedType string, body map[string]any) (Row, error) {
	rel, err := Nested(parentTable, nestedType)
	if err != nil {
		return nil, err
	}
	values := e.normalizeImages(naming.Pick(body, rel.Fields))
	if len(values) == 0 {
		return nil, ErrEmptyPayload
	}
	values[rel.ForeignKey] = parentID
	return e.insert(ctx, rel.Table, values)
}

// PatchNested updates whitelisted fields of a nested row belonging to parentID.
func (e *Engine) PatchNested(ctx context.Context, parentTable string, parentID int64, nestedType string, id int64, body map[string]any) (Row, error) {
	rel, err := Nested(parentTable, nestedType)
	if err != nil {
		return nil, err
	}
	values := e.normalizeImages(naming.Pick(body, rel.Fields))
	if len(values) == 0 {
		return nil, ErrEmptyPayload
	}
	q, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	res := q.Table(rel.Table).Where(eq(ColumnID, id)).Where(eq(rel.ForeignKey, parentID)).Updates(toColumns(values))
	if res.Error != nil {
		return nil, fmt.Errorf("update %s: %w", rel.Table, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s row %d under parent %d", ErrNotFound, rel.Table, id, parentID)
	}
	return e.find(ctx, rel.Table, id)
}

// DeleteNested removes a nested row belonging to parentID.
func (e *Engine) DeleteNested(ctx context.Context, parentTable string, parentID int64, nestedType string, id int64) (DeleteOutcome, error) {
	rel, err := Nested(parentTable, nestedType)
	if err != nil {
		return DeleteOutcome{}, err
	}
	row, err := e.find(ctx, rel.Table, id)
	if err != nil {
		return DeleteOutcome{}, err
	}
	if owner, ok := toInt64(row[rel.ForeignKey]); !ok || owner != parentID {
		return DeleteOutcome{}, fmt.Errorf("%w: %s row %d under parent %d", ErrNotFound, rel.Table, id, parentID)
	}
	return e.deleteWithAssets(ctx, rel.Table, id)
}

// UploadAsset stores a file at the resolved path, overwriting any previous
// object there.
func (e *Engine) UploadAsset(ctx context.Context, in UploadInput) (UploadResult, error) {
	if e == nil || e.store == nil {
		return UploadResult{}, storage.ErrNotConfigured
	}
	key := storage.ResolveUploadPath(in.Section, in.SubType, in.Path, in.Filename, e.now())
	if errUpload := e.store.Upload(ctx, key, in.Body, in.ContentType); errUpload != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", key, errUpload)
	}
	log.WithFields(log.Fields{"path": key, "section": in.Section}).Info("asset uploaded")
	return UploadResult{Path: key, URL: e.store.PublicURL(key)}, nil
}

// ListAssets lists files under a sanitized prefix.
func (e *Engine) ListAssets(ctx context.Context, prefix string) ([]storage.Object, error) {
	if e == nil || e.store == nil {
		return nil, storage.ErrNotConfigured
	}
	objects, err := e.store.List(ctx, storage.Sanitize(prefix))
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return objects, nil
}

func (e *Engine) listByForeignKey(ctx context.Context, rel Relation, parentID int64) ([]Row, error) {
	q, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows := []Row{}
	if errFind := q.Table(rel.Table).Where(eq(rel.ForeignKey, parentID)).Order(orderByID).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("list %s: %w", rel.Table, errFind)
	}
	return rows, nil
}

// attachNested loads every nested relation of table for rows in one query per
// relation and stores the results under the relation name.
func (e *Engine) attachNested(ctx context.Context, table string, rows []Row) error {
	relations := NestedRelations(table)
	if len(relations) == 0 || len(rows) == 0 {
		return nil
	}
	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		if id, ok := RowID(row); ok {
			ids = append(ids, id)
		}
	}
	q, err := e.conn(ctx)
	if err != nil {
		return err
	}
	for _, rel := range relations {
		var nested []Row
		if len(ids) > 0 {
			errFind := q.Table(rel.Table).
				Where(clause.IN{Column: clause.Column{Name: rel.ForeignKey}, Values: ids}).
				Order(orderByID).
				Find(&nested).Error
			if errFind != nil {
				return fmt.Errorf("list %s: %w", rel.Table, errFind)
			}
		}
		grouped := make(map[int64][]Row, len(rows))
		for _, n := range nested {
			if owner, ok := toInt64(n[rel.ForeignKey]); ok {
				grouped[owner] = append(grouped[owner], n)
			}
		}
		for _, row := range rows {
			id, _ := RowID(row)
			children := grouped[id]
			if children == nil {
				children = []Row{}
			}
			row[rel.Name] = children
		}
	}
	return nil
}

func (e *Engine) find(ctx context.Context, table string, id int64) (Row, error) {
	q, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if errFind := q.Table(table).Where(eq(ColumnID, id)).Limit(1).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("load %s row %d: %w", table, id, errFind)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s row %d", ErrNotFound, table, id)
	}
	return rows[0], nil
}

// insert writes a row and returns it as stored.
func (e *Engine) insert(ctx context.Context, table string, values map[string]any) (Row, error) {
	q, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		quoted[i] = e.quote(column)
		placeholders[i] = "?"
		args[i] = columnValue(values[column])
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		e.quote(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	var rows []Row
	if errInsert := q.Raw(stmt, args...).Scan(&rows).Error; errInsert != nil {
		return nil, fmt.Errorf("insert %s: %w", table, errInsert)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}
	return rows[0], nil
}

// update applies values to a row by id and returns the updated row.
func (e *Engine) update(ctx context.Context, table string, id int64, values map[string]any) (Row, error) {
	if len(values) == 0 {
		return nil, ErrEmptyPayload
	}
	q, err := e.conn(ctx)
	if err != nil {
		return nil, err
	}
	res := q.Table(table).Where(eq(ColumnID, id)).Updates(toColumns(values))
	if res.Error != nil {
		return nil, fmt.Errorf("update %s row %d: %w", table, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s row %d", ErrNotFound, table, id)
	}
	return e.find(ctx, table, id)
}

// deleteWithAssets removes the row's stored assets (best effort) and then the
// row itself. A storage failure is reported on the outcome, never returned.
func (e *Engine) deleteWithAssets(ctx context.Context, table string, id int64) (DeleteOutcome, error) {
	row, err := e.find(ctx, table, id)
	if err != nil {
		return DeleteOutcome{}, err
	}
	outcome := DeleteOutcome{ID: id}

	keys := e.assetKeys(row)
	if len(keys) > 0 {
		switch {
		case e.store == nil:
			outcome.StorageWarning = storage.ErrNotConfigured.Error() + "; assets left in place"
		default:
			if errRemove := e.store.Remove(ctx, keys...); errRemove != nil {
				outcome.StorageWarning = errRemove.Error()
				log.WithError(errRemove).WithFields(log.Fields{"table": table, "id": id, "keys": keys}).
					Warn("asset cleanup failed; deleting row anyway")
			} else {
				outcome.RemovedAssets = keys
			}
		}
	}

	q, err := e.conn(ctx)
	if err != nil {
		return outcome, err
	}
	res := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", e.quote(table), e.quote(ColumnID)), id)
	if res.Error != nil {
		return outcome, fmt.Errorf("delete %s row %d: %w", table, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return outcome, fmt.Errorf("%w: %s row %d", ErrNotFound, table, id)
	}
	outcome.Deleted = true
	return outcome, nil
}

// assetKeys derives storage keys from the row's non-empty image fields.
func (e *Engine) assetKeys(row Row) []string {
	var keys []string
	seen := map[string]struct{}{}
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		if _, ok := isImageField(column); !ok {
			continue
		}
		ref, ok := row[column].(string)
		if !ok || strings.TrimSpace(ref) == "" {
			continue
		}
		key := e.storageKey(ref)
		if key == "" || strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func (e *Engine) storageKey(ref string) string {
	if e.store == nil {
		return storage.Locator{}.StorageKey(ref)
	}
	return e.store.StorageKey(ref)
}

// normalizeImages rewrites bare storage paths in image fields to public URLs.
func (e *Engine) normalizeImages(values map[string]any) map[string]any {
	if e.store == nil {
		return values
	}
	for key, value := range values {
		if _, ok := isImageField(key); !ok {
			continue
		}
		if ref, ok := value.(string); ok {
			values[key] = storage.NormalizeURL(e.store, ref)
		}
	}
	return values
}

// toColumns converts decoded JSON values into driver-friendly column values.
func toColumns(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = columnValue(v)
	}
	return out
}

// columnValue maps JSON numbers to integers where exact and encodes composite
// values as JSON text.
func columnValue(v any) any {
	switch typed := v.(type) {
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1<<53 {
			return int64(typed)
		}
		return typed
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case map[string]any, []any:
		data, err := json.Marshal(typed)
		if err != nil {
			return nil
		}
		return string(data)
	default:
		return v
	}
}

// RowID extracts the numeric id of a row.
func RowID(row Row) (int64, bool) {
	if row == nil {
		return 0, false
	}
	return toInt64(row[ColumnID])
}

func toInt64(v any) (int64, bool) {
	switch typed := v.(type) {
	case int64:
		return typed, true
	case int32:
		return int64(typed), true
	case int:
		return int64(typed), true
	case uint64:
		return int64(typed), true
	case uint32:
		return int64(typed), true
	case float64:
		return int64(typed), typed == math.Trunc(typed)
	case []byte:
		i, err := strconv.ParseInt(string(typed), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(typed, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
