package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/clock"
	"github.com/creatorstack/paisa/internal/creator/domain"
	"github.com/creatorstack/paisa/internal/secret"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Store  domain.Store
	Secret *secret.Codec
}

type Service struct {
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	store  domain.Store
	secret *secret.Codec
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("creator.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		store:  p.Store,
		secret: p.Secret,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Creator, error) {
	creator, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Creator{}, err
	}
	if creator == nil {
		return domain.Creator{}, domain.ErrCreatorNotFound
	}
	return *creator, nil
}

func (s *Service) Create(ctx context.Context, creator domain.Creator) (domain.Creator, error) {
	creator.Name = strings.TrimSpace(creator.Name)
	if creator.Name == "" {
		return domain.Creator{}, domain.ErrInvalidName
	}

	creator.Email = strings.TrimSpace(creator.Email)
	if creator.Email == "" || !strings.Contains(creator.Email, "@") {
		return domain.Creator{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	if creator.ID == 0 {
		creator.ID = s.genID.Generate()
	}
	if creator.Metadata == nil {
		creator.Metadata = datatypes.JSONMap{}
	}
	creator.CreatedAt = now
	creator.UpdatedAt = now

	if err := s.store.Create(ctx, &creator); err != nil {
		return domain.Creator{}, err
	}
	return creator, nil
}

func (s *Service) UpdateTaxPreferences(ctx context.Context, id snowflake.ID, req domain.UpdateTaxPreferencesRequest) (domain.Creator, error) {
	creator, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Creator{}, err
	}
	if creator == nil {
		return domain.Creator{}, domain.ErrCreatorNotFound
	}

	gstin, err := s.secret.Seal(strings.TrimSpace(req.GSTIN))
	if err != nil {
		return domain.Creator{}, err
	}
	pan, err := s.secret.Seal(strings.TrimSpace(req.PAN))
	if err != nil {
		return domain.Creator{}, err
	}

	prefs := creator.TaxPreferences.Data()
	prefs.ApplyGST = req.ApplyGST
	prefs.GSTRate = req.GSTRate
	prefs.ApplyTDS = req.ApplyTDS
	prefs.TDSRate = req.TDSRate
	prefs.TDSExemption = req.TDSExemption
	prefs.ExemptionCertificate = strings.TrimSpace(req.ExemptionCertificate)
	prefs.ExemptionValidUntil = req.ExemptionValidUntil
	if !gstin.IsZero() {
		prefs.GSTIN = gstin
	}
	if !pan.IsZero() {
		prefs.PAN = pan
	}

	creator.TaxPreferences = datatypes.NewJSONType(prefs)
	creator.UpdatedAt = s.clock.Now()

	if err := s.store.Update(ctx, creator); err != nil {
		return domain.Creator{}, err
	}
	return *creator, nil
}

func (s *Service) UpdateBankDetails(ctx context.Context, id snowflake.ID, req domain.UpdateBankDetailsRequest) (domain.Creator, error) {
	creator, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Creator{}, err
	}
	if creator == nil {
		return domain.Creator{}, domain.ErrCreatorNotFound
	}

	details := domain.BankDetails{}
	if details.AccountName, err = s.secret.Seal(strings.TrimSpace(req.AccountName)); err != nil {
		return domain.Creator{}, err
	}
	if details.AccountNumber, err = s.secret.Seal(strings.TrimSpace(req.AccountNumber)); err != nil {
		return domain.Creator{}, err
	}
	if details.IFSC, err = s.secret.Seal(strings.TrimSpace(req.IFSC)); err != nil {
		return domain.Creator{}, err
	}
	if details.UPI, err = s.secret.Seal(strings.TrimSpace(req.UPI)); err != nil {
		return domain.Creator{}, err
	}

	creator.BankDetails = datatypes.NewJSONType(details)
	creator.UpdatedAt = s.clock.Now()

	if err := s.store.Update(ctx, creator); err != nil {
		return domain.Creator{}, err
	}
	return *creator, nil
}
