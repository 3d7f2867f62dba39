package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/codec"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const surveyCollection = "surveys"

type (
	// MongoStore keeps one document per survey with the questions embedded
	// in presentation order.
	MongoStore struct {
		client *mongo.Client
		coll   *mongo.Collection
		logger *logger.Logger
		now    func() time.Time
	}

	surveyDoc struct {
		ID          string          `bson:"_id"`
		OwnerID     string          `bson:"owner_id"`
		Title       string          `bson:"title"`
		Description string          `bson:"description"`
		Status      string          `bson:"status"`
		Settings    entity.Settings `bson:"settings"`
		IsTemplate  bool            `bson:"is_template"`
		IsPublic    bool            `bson:"is_public"`
		Category    string          `bson:"category"`
		Industry    string          `bson:"industry"`
		Questions   []questionDoc   `bson:"questions"`
		CreatedAt   time.Time       `bson:"created_at"`
		UpdatedAt   time.Time       `bson:"updated_at"`
	}

	// questionDoc keeps the type-specific fields as JSON text, BSON would
	// turn whole numbers into integers and break round-trips.
	questionDoc struct {
		ID          string `bson:"id"`
		Type        string `bson:"type"`
		Title       string `bson:"title"`
		Description string `bson:"description"`
		Required    bool   `bson:"required"`
		Fields      string `bson:"fields"`
	}
)

// ConnectMongo opens a client and checks the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

func NewMongoStore(client *mongo.Client, database string, logger *logger.Logger) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(surveyCollection),
		logger: logger,
		now:    time.Now,
	}
}

// Migrate creates the indexes used by the template listing.
func (m *MongoStore) Migrate(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_template", Value: 1}, {Key: "category", Value: 1}}},
	})
	if err != nil {
		m.logger.Error("error create indexes", zap.String("collection", surveyCollection), zap.Error(err))
		return entity.NewPersistenceError("migrate", err)
	}
	return nil
}

func (m *MongoStore) Load(ctx context.Context, id uuid.UUID) (*entity.Survey, error) {
	var doc surveyDoc

	err := m.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.NewNotFoundError("survey", id.String())
		}
		m.logger.Error("error load survey",
			zap.String("survey_id", id.String()),
			zap.Error(err),
		)
		return nil, entity.NewPersistenceError("load survey", err)
	}

	s, err := doc.toEntity()
	if err != nil {
		m.logger.Error("error decode survey",
			zap.String("survey_id", id.String()),
			zap.Error(err),
		)
		return nil, entity.NewPersistenceError("decode survey", err)
	}
	return s, nil
}

func (m *MongoStore) Save(ctx context.Context, s *entity.Survey) (uuid.UUID, error) {
	doc := s.Clone()
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return uuid.Nil, err
	}

	if doc.IsNew() {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.Nil, entity.NewPersistenceError("generate id", err)
		}
		doc.ID = id
	}

	now := m.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	stored, err := toDoc(doc)
	if err != nil {
		return uuid.Nil, entity.NewPersistenceError("encode survey", err)
	}

	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": stored.ID}, stored, options.Replace().SetUpsert(true))
	if err != nil {
		m.logger.Error("error save survey",
			zap.String("survey_id", stored.ID),
			zap.Error(err),
		)
		return uuid.Nil, entity.NewPersistenceError("save survey", err)
	}

	return doc.ID, nil
}

func (m *MongoStore) ListTemplates(ctx context.Context, filter entity.TemplateFilter) ([]*entity.Survey, error) {
	cursor, err := m.coll.Find(ctx, templateQuery(filter), options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		m.logger.Error("error list templates", zap.Error(err))
		return nil, entity.NewPersistenceError("list templates", err)
	}

	var docs []surveyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		m.logger.Error("error read templates", zap.Error(err))
		return nil, entity.NewPersistenceError("list templates", err)
	}

	out := make([]*entity.Survey, 0, len(docs))
	for i := range docs {
		s, err := docs[i].toEntity()
		if err != nil {
			m.logger.Warn("skipping undecodable template",
				zap.String("survey_id", docs[i].ID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MongoStore) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil) == nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func templateQuery(filter entity.TemplateFilter) bson.M {
	query := bson.M{"is_template": true}

	and := bson.A{}
	if filter.OwnerID != "" {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"is_public": true},
			bson.M{"owner_id": filter.OwnerID},
		}})
	} else {
		query["is_public"] = true
	}

	if filter.Category != "" {
		query["category"] = exactFold(filter.Category)
	}
	if filter.Industry != "" {
		query["industry"] = exactFold(filter.Industry)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		contains := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": contains},
			bson.M{"description": contains},
		}})
	}

	if len(and) > 0 {
		query["$and"] = and
	}
	return query
}

func exactFold(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

func toDoc(s *entity.Survey) (*surveyDoc, error) {
	doc := &surveyDoc{
		ID:          s.ID.String(),
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		Description: s.Description,
		Status:      string(s.Status),
		Settings:    s.Settings,
		IsTemplate:  s.IsTemplate,
		IsPublic:    s.IsPublic,
		Category:    s.Category,
		Industry:    s.Industry,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Questions:   make([]questionDoc, len(s.Questions)),
	}

	for i, q := range s.Questions {
		fields, err := codec.Marshal(q.Fields)
		if err != nil {
			return nil, err
		}
		doc.Questions[i] = questionDoc{
			ID:          q.ID,
			Type:        q.Type,
			Title:       q.Title,
			Description: q.Description,
			Required:    q.Required,
			Fields:      string(fields),
		}
	}

	return doc, nil
}

func (d *surveyDoc) toEntity() (*entity.Survey, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}

	s := &entity.Survey{
		ID:          id,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		Status:      entity.SurveyStatus(d.Status),
		Settings:    d.Settings,
		IsTemplate:  d.IsTemplate,
		IsPublic:    d.IsPublic,
		Category:    d.Category,
		Industry:    d.Industry,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Questions:   make([]entity.Question, len(d.Questions)),
	}

	for i, q := range d.Questions {
		fields := entity.Fields{}
		if q.Fields != "" {
			if err := codec.Unmarshal([]byte(q.Fields), &fields); err != nil {
				return nil, err
			}
		}
		s.Questions[i] = entity.Question{
			ID:          q.ID,
			Type:        q.Type,
			Title:       q.Title,
			Description: q.Description,
			Required:    q.Required,
			Fields:      fields,
		}
	}

	s.Normalize()
	return s, nil
}
