package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"diamondbot/pkg/domain"
)

const migrateLockID int64 = 52815281

const defaultListLimit = 50

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{}, &SessionModel{}, &UploadModel{}, &DiamondModel{},
			&DesignModel{}, &MessageModel{}, &ListingModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		// Dependent records follow their user on delete.
		for _, fk := range []struct {
			table, name string
		}{
			{"session_models", "session_models_user_id_fkey"},
			{"upload_models", "upload_models_user_id_fkey"},
			{"diamond_models", "diamond_models_user_id_fkey"},
			{"design_models", "design_models_user_id_fkey"},
			{"message_models", "message_models_user_id_fkey"},
			{"listing_models", "listing_models_user_id_fkey"},
		} {
			if err := tx.Exec(fmt.Sprintf(`
				DO $$
				BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = '%s'
					AND constraint_name = '%s'
				) THEN
					ALTER TABLE %s
					ADD CONSTRAINT %s
					FOREIGN KEY (user_id) REFERENCES user_models(id) ON DELETE CASCADE;
				END IF;
				END $$;
			`, fk.table, fk.name, fk.table, fk.name)).Error; err != nil {
				return fmt.Errorf("add %s: %w", fk.name, err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrateLockID).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		return fn(tx)
	})
}

func normalizeOpts(opts ListOptions) ListOptions {
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = defaultListLimit
	}
	return opts
}

// ---- users ----

func (s *GormStore) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	return sqlDB.Ping()
}

func (s *GormStore) CreateUser(u domain.User) error {
	model := UserModel{
		ID:              u.ID,
		ChannelAddress:  u.ChannelAddress,
		DisplayName:     u.DisplayName,
		LastIntent:      u.LastIntent,
		LastInteraction: u.LastInteraction,
		CreatedAt:       u.CreatedAt,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) GetUser(id string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.First(&model, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByAddress(address string) (domain.User, bool, error) {
	var model UserModel
	err := s.db.First(&model, "channel_address = ?", strings.TrimSpace(address)).Error
	if err == gorm.ErrRecordNotFound {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user by address: %w", err)
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) TouchUser(id string, lastIntent string) error {
	updates := map[string]any{"last_interaction": time.Now().UTC()}
	if lastIntent != "" {
		updates["last_intent"] = lastIntent
	}
	if err := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteUser(id string) error {
	if err := s.db.Delete(&UserModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:              m.ID,
		ChannelAddress:  m.ChannelAddress,
		DisplayName:     m.DisplayName,
		LastIntent:      m.LastIntent,
		LastInteraction: m.LastInteraction,
		CreatedAt:       m.CreatedAt,
	}
}

// ---- sessions ----

func (s *GormStore) GetSession(userID string) (domain.Session, bool, error) {
	var model SessionModel
	err := s.db.First(&model, "user_id = ?", userID).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	session := domain.Session{
		UserID:        model.UserID,
		Step:          domain.SessionStep(model.Step),
		LastDiamondID: model.LastDiamondID,
		LastDesignID:  model.LastDesignID,
		UpdatedAt:     model.UpdatedAt,
	}
	if len(model.Listing) > 0 {
		var draft domain.ListingDraft
		if err := json.Unmarshal(model.Listing, &draft); err != nil {
			return domain.Session{}, false, fmt.Errorf("decode listing draft: %w", err)
		}
		session.Listing = &draft
	}
	return session, true, nil
}

func (s *GormStore) UpsertSession(session domain.Session) error {
	model := SessionModel{
		UserID:        session.UserID,
		Step:          string(session.Step),
		LastDiamondID: session.LastDiamondID,
		LastDesignID:  session.LastDesignID,
		UpdatedAt:     time.Now().UTC(),
	}
	if session.Listing != nil {
		raw, err := json.Marshal(session.Listing)
		if err != nil {
			return fmt.Errorf("encode listing draft: %w", err)
		}
		model.Listing = raw
	}
	if err := s.db.Save(&model).Error; err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// ---- uploads ----

func (s *GormStore) CreateUpload(u domain.Upload) error {
	model := UploadModel{
		ID:           u.ID,
		UserID:       u.UserID,
		FileURL:      u.FileURL,
		FileType:     u.FileType,
		Status:       string(u.Status),
		ErrorMessage: u.ErrorMessage,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	return nil
}

func (s *GormStore) SetUploadStatus(id string, status domain.UploadStatus, errMsg string) error {
	err := s.db.Model(&UploadModel{}).Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "error_message": errMsg}).Error
	if err != nil {
		return fmt.Errorf("set upload status: %w", err)
	}
	return nil
}

func (s *GormStore) ListUploadsByUser(userID string, opts ListOptions) ([]domain.Upload, error) {
	opts = normalizeOpts(opts)
	var models []UploadModel
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(opts.Skip).Limit(opts.Limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	out := make([]domain.Upload, 0, len(models))
	for _, m := range models {
		out = append(out, domain.Upload{
			ID:           m.ID,
			UserID:       m.UserID,
			FileURL:      m.FileURL,
			FileType:     m.FileType,
			Status:       domain.UploadStatus(m.Status),
			ErrorMessage: m.ErrorMessage,
			CreatedAt:    m.CreatedAt,
		})
	}
	return out, nil
}

// ---- diamonds ----

func (s *GormStore) CreateDiamond(d domain.Diamond) error {
	model := diamondToModel(d)
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("create diamond: %w", err)
	}
	return nil
}

func (s *GormStore) GetDiamond(id string) (domain.Diamond, bool, error) {
	var model DiamondModel
	err := s.db.First(&model, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Diamond{}, false, nil
	}
	if err != nil {
		return domain.Diamond{}, false, fmt.Errorf("get diamond: %w", err)
	}
	return diamondFromModel(model), true, nil
}

func (s *GormStore) GetDiamondByCertificate(certificateNumber string) (domain.Diamond, bool, error) {
	var model DiamondModel
	err := s.db.First(&model, "certificate_number = ?", strings.TrimSpace(certificateNumber)).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Diamond{}, false, nil
	}
	if err != nil {
		return domain.Diamond{}, false, fmt.Errorf("get diamond by certificate: %w", err)
	}
	return diamondFromModel(model), true, nil
}

func (s *GormStore) ListDiamondsByUser(userID string, opts ListOptions) ([]domain.Diamond, error) {
	opts = normalizeOpts(opts)
	var models []DiamondModel
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(opts.Skip).Limit(opts.Limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list diamonds: %w", err)
	}
	out := make([]domain.Diamond, 0, len(models))
	for _, m := range models {
		out = append(out, diamondFromModel(m))
	}
	return out, nil
}

func diamondToModel(d domain.Diamond) DiamondModel {
	return DiamondModel{
		ID:                d.ID,
		UserID:            d.UserID,
		UploadID:          d.UploadID,
		Shape:             d.Shape,
		Carat:             d.Carat,
		ColorType:         d.ColorType,
		PrimaryHue:        d.PrimaryHue,
		Modifier:          d.Modifier,
		Intensity:         d.Intensity,
		Clarity:           d.Clarity,
		Cut:               d.Cut,
		Polish:            d.Polish,
		Symmetry:          d.Symmetry,
		Fluorescence:      d.Fluorescence,
		CertificateNumber: d.CertificateNumber,
		ParsedConfidence:  d.ParsedConfidence,
		CreatedAt:         d.CreatedAt,
	}
}

func diamondFromModel(m DiamondModel) domain.Diamond {
	return domain.Diamond{
		ID:                m.ID,
		UserID:            m.UserID,
		UploadID:          m.UploadID,
		Shape:             m.Shape,
		Carat:             m.Carat,
		ColorType:         m.ColorType,
		PrimaryHue:        m.PrimaryHue,
		Modifier:          m.Modifier,
		Intensity:         m.Intensity,
		Clarity:           m.Clarity,
		Cut:               m.Cut,
		Polish:            m.Polish,
		Symmetry:          m.Symmetry,
		Fluorescence:      m.Fluorescence,
		CertificateNumber: m.CertificateNumber,
		ParsedConfidence:  m.ParsedConfidence,
		CreatedAt:         m.CreatedAt,
	}
}

// ---- designs ----

func (s *GormStore) CreateDesign(d domain.Design) error {
	model := DesignModel{
		ID:             d.ID,
		UserID:         d.UserID,
		DiamondID:      d.DiamondID,
		ParentID:       d.ParentID,
		Kind:           string(d.Kind),
		UserInput:      d.UserInput,
		PreviousPrompt: d.PreviousPrompt,
		Prompt:         d.Prompt,
		ImageURL:       d.ImageURL,
		Status:         string(d.Status),
		CreatedAt:      d.CreatedAt,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("create design: %w", err)
	}
	return nil
}

func (s *GormStore) GetDesign(id string) (domain.Design, bool, error) {
	var model DesignModel
	err := s.db.First(&model, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Design{}, false, nil
	}
	if err != nil {
		return domain.Design{}, false, fmt.Errorf("get design: %w", err)
	}
	return designFromModel(model), true, nil
}

func (s *GormStore) SetDesignStatus(id string, status domain.DesignStatus) error {
	err := s.db.Model(&DesignModel{}).Where("id = ?", id).
		Update("status", string(status)).Error
	if err != nil {
		return fmt.Errorf("set design status: %w", err)
	}
	return nil
}

func (s *GormStore) ListDesignsByUser(userID string, opts ListOptions) ([]domain.Design, error) {
	opts = normalizeOpts(opts)
	var models []DesignModel
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(opts.Skip).Limit(opts.Limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	out := make([]domain.Design, 0, len(models))
	for _, m := range models {
		out = append(out, designFromModel(m))
	}
	return out, nil
}

func designFromModel(m DesignModel) domain.Design {
	return domain.Design{
		ID:             m.ID,
		UserID:         m.UserID,
		DiamondID:      m.DiamondID,
		ParentID:       m.ParentID,
		Kind:           domain.DesignKind(m.Kind),
		UserInput:      m.UserInput,
		PreviousPrompt: m.PreviousPrompt,
		Prompt:         m.Prompt,
		ImageURL:       m.ImageURL,
		Status:         domain.DesignStatus(m.Status),
		CreatedAt:      m.CreatedAt,
	}
}

// ---- messages ----

func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := MessageModel{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Direction: string(msg.Direction),
		Kind:      string(msg.Kind),
		Content:   msg.Content,
		MediaURL:  msg.MediaURL,
		CreatedAt: msg.CreatedAt,
	}
	if len(msg.Meta) > 0 {
		raw, err := json.Marshal(msg.Meta)
		if err != nil {
			return fmt.Errorf("encode message meta: %w", err)
		}
		model.Meta = raw
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *GormStore) ListMessagesByUser(userID string, opts ListOptions) ([]domain.Message, error) {
	opts = normalizeOpts(opts)
	var models []MessageModel
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(opts.Skip).Limit(opts.Limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]domain.Message, 0, len(models))
	for _, m := range models {
		msg := domain.Message{
			ID:        m.ID,
			UserID:    m.UserID,
			Direction: domain.MessageDirection(m.Direction),
			Kind:      domain.MessageKind(m.Kind),
			Content:   m.Content,
			MediaURL:  m.MediaURL,
			CreatedAt: m.CreatedAt,
		}
		if len(m.Meta) > 0 {
			meta := map[string]string{}
			if err := json.Unmarshal(m.Meta, &meta); err == nil {
				msg.Meta = meta
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// ---- listings ----

func (s *GormStore) CreateListing(l domain.Listing) error {
	images, err := json.Marshal(l.Images)
	if err != nil {
		return fmt.Errorf("encode listing images: %w", err)
	}
	model := ListingModel{
		ID:          l.ID,
		UserID:      l.UserID,
		DiamondID:   l.DiamondID,
		Price:       l.Price,
		ContactInfo: l.ContactInfo,
		Images:      images,
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (s *GormStore) GetListing(id string) (domain.Listing, bool, error) {
	var model ListingModel
	err := s.db.First(&model, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Listing{}, false, nil
	}
	if err != nil {
		return domain.Listing{}, false, fmt.Errorf("get listing: %w", err)
	}
	listing, err := listingFromModel(model)
	if err != nil {
		return domain.Listing{}, false, err
	}
	return listing, true, nil
}

func (s *GormStore) SetListingStatus(id string, status domain.ListingStatus) error {
	err := s.db.Model(&ListingModel{}).Where("id = ?", id).
		Update("status", string(status)).Error
	if err != nil {
		return fmt.Errorf("set listing status: %w", err)
	}
	return nil
}

func (s *GormStore) ListListingsByUser(userID string, opts ListOptions) ([]domain.Listing, error) {
	opts = normalizeOpts(opts)
	var models []ListingModel
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Offset(opts.Skip).Limit(opts.Limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listingsFromModels(models)
}

// searchBatchSize is the SQL window used when price bounds force
// filtering in Go.
const searchBatchSize = 100

// SearchListings joins approved listings with their diamond attributes.
// Price ranges are applied in Go because prices may carry the
// contact-for-price sentinel instead of a number; skip and limit always
// count price-filtered rows so paging matches the in-memory store.
func (s *GormStore) SearchListings(search ListingSearch, opts ListOptions) ([]domain.Listing, error) {
	opts = normalizeOpts(opts)

	if search.PriceMin == nil && search.PriceMax == nil {
		var models []ListingModel
		err := s.searchQuery(search).
			Offset(opts.Skip).Limit(opts.Limit).
			Find(&models).Error
		if err != nil {
			return nil, fmt.Errorf("search listings: %w", err)
		}
		return listingsFromModels(models)
	}

	var out []domain.Listing
	toSkip := opts.Skip
	for sqlOffset := 0; ; sqlOffset += searchBatchSize {
		var models []ListingModel
		err := s.searchQuery(search).
			Offset(sqlOffset).Limit(searchBatchSize).
			Find(&models).Error
		if err != nil {
			return nil, fmt.Errorf("search listings: %w", err)
		}
		listings, err := listingsFromModels(models)
		if err != nil {
			return nil, err
		}
		for _, l := range FilterListingsByPrice(listings, search.PriceMin, search.PriceMax) {
			if toSkip > 0 {
				toSkip--
				continue
			}
			out = append(out, l)
			if len(out) == opts.Limit {
				return out, nil
			}
		}
		if len(models) < searchBatchSize {
			return out, nil
		}
	}
}

func (s *GormStore) searchQuery(search ListingSearch) *gorm.DB {
	q := s.db.Table("listing_models").
		Select("listing_models.*").
		Joins("JOIN diamond_models ON diamond_models.id = listing_models.diamond_id").
		Where("listing_models.status = ?", string(domain.ListingApproved))
	if search.Shape != "" {
		q = q.Where("LOWER(diamond_models.shape) = LOWER(?)", search.Shape)
	}
	if search.Color != "" {
		q = q.Where("LOWER(diamond_models.primary_hue) = LOWER(?)", search.Color)
	}
	if search.Clarity != "" {
		q = q.Where("LOWER(diamond_models.clarity) = LOWER(?)", search.Clarity)
	}
	if search.Cut != "" {
		q = q.Where("LOWER(diamond_models.cut) = LOWER(?)", search.Cut)
	}
	if search.CaratMin != nil {
		q = q.Where("diamond_models.carat >= ?", *search.CaratMin)
	}
	if search.CaratMax != nil {
		q = q.Where("diamond_models.carat <= ?", *search.CaratMax)
	}
	return q.Order("listing_models.created_at DESC")
}

func listingFromModel(m ListingModel) (domain.Listing, error) {
	listing := domain.Listing{
		ID:          m.ID,
		UserID:      m.UserID,
		DiamondID:   m.DiamondID,
		Price:       m.Price,
		ContactInfo: m.ContactInfo,
		Status:      domain.ListingStatus(m.Status),
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Images) > 0 {
		if err := json.Unmarshal(m.Images, &listing.Images); err != nil {
			return domain.Listing{}, fmt.Errorf("decode listing images: %w", err)
		}
	}
	return listing, nil
}

func listingsFromModels(models []ListingModel) ([]domain.Listing, error) {
	out := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		listing, err := listingFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, listing)
	}
	return out, nil
}
