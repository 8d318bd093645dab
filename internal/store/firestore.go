package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// OpenFirebaseApp initializes the Firebase app shared by the Firestore store and the
// ID-token verifier. Credentials come from a service-account file, inline JSON, or the
// ambient Google application default credentials, in that order.
func OpenFirebaseApp(ctx context.Context, projectID, credentialsFile, credentialsJSON string) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	default:
		log.Println("firebase: no explicit credentials, using application default credentials")
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}

// Firestore adapts a Cloud Firestore client to Store.
type Firestore struct {
	client *firestore.Client
}

var _ Store = (*Firestore)(nil)

// NewFirestore opens the Firestore client of a Firebase app.
func NewFirestore(ctx context.Context, app *firebase.App) (*Firestore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) Create(ctx context.Context, collection string, fields Fields) (Document, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, toData(fields))
	if err != nil {
		return Document{}, fmt.Errorf("add %s: %w", collection, err)
	}
	return Document{ID: ref.ID, Fields: cloneFields(fields)}, nil
}

func (f *Firestore) CreateWithID(ctx context.Context, collection, id string, fields Fields) (Document, error) {
	_, err := f.client.Collection(collection).Doc(id).Create(ctx, toData(fields))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return Document{}, ErrAlreadyExists
		}
		return Document{}, fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fromSnapshot(snap), nil
}

// List pushes filters, ordering and the cursor into the Firestore query. Equality filters
// combined with an order field need a composite index in the project.
func (f *Firestore) List(ctx context.Context, collection string, q Query) (Page, error) {
	coll := f.client.Collection(collection)
	query := coll.Query
	for _, flt := range q.Filters {
		query = query.Where(flt.Field, flt.Op, flt.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Cursor != "" {
		snap, err := coll.Doc(q.Cursor).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return Page{}, ErrInvalidCursor
			}
			return Page{}, fmt.Errorf("resolve cursor: %w", err)
		}
		query = query.StartAfter(snap)
	}
	limit := normalizeLimit(q.Limit)
	query = query.Limit(limit + 1)

	iter := query.Documents(ctx)
	defer iter.Stop()
	var page Page
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return Page{}, fmt.Errorf("list %s: %w", collection, err)
		}
		page.Documents = append(page.Documents, fromSnapshot(snap))
	}
	if len(page.Documents) > limit {
		page.Documents = page.Documents[:limit]
		page.NextCursor = page.Documents[limit-1].ID
	}
	return page, nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, patch Fields) (Document, error) {
	ref := f.client.Collection(collection).Doc(id)
	if len(patch) > 0 {
		if _, err := ref.Update(ctx, toUpdates(patch)); err != nil {
			if status.Code(err) == codes.NotFound {
				return Document{}, ErrNotFound
			}
			return Document{}, fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
	}
	return f.Get(ctx, collection, id)
}

// Mutate runs fn inside a Firestore transaction; fn may be retried on contention.
func (f *Firestore) Mutate(ctx context.Context, collection, id string, fn MutateFunc) (Document, error) {
	ref := f.client.Collection(collection).Doc(id)
	var result Document
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		current := fromSnapshot(snap)
		patch, err := fn(current)
		if err != nil {
			return err
		}
		result = Document{ID: id, Fields: merge(current.Fields, patch)}
		if len(patch) == 0 {
			return nil
		}
		return tx.Update(ref, toUpdates(patch))
	})
	if err != nil {
		return Document{}, err
	}
	return result, nil
}

// Increment uses the server-side increment transform, so concurrent calls never lose counts.
func (f *Firestore) Increment(ctx context.Context, collection, id string, path []string, delta int64) (Document, error) {
	if len(path) == 0 {
		return Document{}, fmt.Errorf("increment: empty field path")
	}
	ref := f.client.Collection(collection).Doc(id)
	_, err := ref.Update(ctx, []firestore.Update{{
		FieldPath: firestore.FieldPath(path),
		Value:     firestore.Increment(delta),
	}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("increment %s/%s: %w", collection, id, err)
	}
	return f.Get(ctx, collection, id)
}

// Delete succeeds for documents that do not exist, matching Firestore semantics.
func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Ping reads a sentinel document; NotFound still proves the backend answered.
func (f *Firestore) Ping(ctx context.Context) error {
	_, err := f.client.Collection("_health").Doc("ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func fromSnapshot(snap *firestore.DocumentSnapshot) Document {
	return Document{ID: snap.Ref.ID, Fields: Fields(snap.Data())}
}

func toData(fields Fields) map[string]interface{} {
	if fields == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(cloneFields(fields))
}

func toUpdates(patch Fields) []firestore.Update {
	updates := make([]firestore.Update, 0, len(patch))
	for k, v := range patch {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: cloneValue(v)})
	}
	return updates
}
