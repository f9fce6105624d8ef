package mocks

//go:generate mockery --name FlushStore --srcpkg github.com/aevon-lab/fsevents/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
