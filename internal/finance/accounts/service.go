package accounts

import "context"

// Service wraps the repository with input validation and the type
// immutability rule.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListAccounts(ctx context.Context, query string) ([]Account, error) {
	return s.repo.ListAccounts(ctx, query)
}

func (s *Service) GetAccount(ctx context.Context, number string) (Account, error) {
	return s.repo.GetAccount(ctx, number)
}

func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	return s.repo.CreateAccount(ctx, in)
}

// UpdateAccount renames an account. The number identifies it and the type
// may not change once ledger lines can reference it.
func (s *Service) UpdateAccount(ctx context.Context, number string, in AccountInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	existing, err := s.repo.GetAccount(ctx, number)
	if err != nil {
		return Account{}, err
	}
	if in.Type != existing.Type {
		return Account{}, ErrTypeImmutable
	}
	return s.repo.UpdateAccount(ctx, number, in.Name)
}

func (s *Service) DeleteAccount(ctx context.Context, number string) error {
	return s.repo.DeleteAccount(ctx, number)
}

func (s *Service) ListCostCenters(ctx context.Context, query string) ([]CostCenter, error) {
	return s.repo.ListCostCenters(ctx, query)
}

func (s *Service) GetCostCenter(ctx context.Context, number string) (CostCenter, error) {
	return s.repo.GetCostCenter(ctx, number)
}

func (s *Service) CreateCostCenter(ctx context.Context, in DimensionInput) (CostCenter, error) {
	if err := in.Validate(); err != nil {
		return CostCenter{}, err
	}
	return s.repo.CreateCostCenter(ctx, in)
}

func (s *Service) UpdateCostCenter(ctx context.Context, number string, in DimensionInput) (CostCenter, error) {
	if err := in.Validate(); err != nil {
		return CostCenter{}, err
	}
	return s.repo.UpdateCostCenter(ctx, number, in)
}

func (s *Service) DeleteCostCenter(ctx context.Context, number string) error {
	return s.repo.DeleteCostCenter(ctx, number)
}

func (s *Service) ListCostObjects(ctx context.Context, query string) ([]CostObject, error) {
	return s.repo.ListCostObjects(ctx, query)
}

func (s *Service) GetCostObject(ctx context.Context, number string) (CostObject, error) {
	return s.repo.GetCostObject(ctx, number)
}

func (s *Service) CreateCostObject(ctx context.Context, in DimensionInput) (CostObject, error) {
	if err := in.Validate(); err != nil {
		return CostObject{}, err
	}
	return s.repo.CreateCostObject(ctx, in)
}

func (s *Service) UpdateCostObject(ctx context.Context, number string, in DimensionInput) (CostObject, error) {
	if err := in.Validate(); err != nil {
		return CostObject{}, err
	}
	return s.repo.UpdateCostObject(ctx, number, in)
}

func (s *Service) DeleteCostObject(ctx context.Context, number string) error {
	return s.repo.DeleteCostObject(ctx, number)
}
