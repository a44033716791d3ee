package orm

import (
	"log"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/storages"
)

type gormStorage struct {
	mutex   sync.RWMutex
	db      *gorm.DB
	console consoles.Console

	mirrors *model.Mirrors
	config  *map[string]string
	links   []*model.RegressionLink

	sqlConfigs     map[string]*sqlConfig
	sqlMirrors     map[string]*sqlMirror
	sqlCommits     map[string]*sqlCommit
	sqlCommitFiles map[string]*sqlCommitFile
	sqlLinks       map[string]*sqlRegressionLink
}

func NewGormStorage(d gorm.Dialector, console consoles.Console) (storages.Storage, error) {
	l := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(d, &gorm.Config{
		NamingStrategy: &NamingStrategy{},
		Logger:         l,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&sqlConfig{},
		&sqlMirror{},
		&sqlCommit{},
		&sqlCommitFile{},
		&sqlRegressionLink{},
	)
	if err != nil {
		return nil, err
	}

	return &gormStorage{
		db:             db,
		console:        console,
		sqlCommitFiles: map[string]*sqlCommitFile{},
	}, nil
}

func (s *gormStorage) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}

func (s *gormStorage) LoadConfig() (*map[string]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.config != nil {
		return s.config, nil
	}

	var configs []*sqlConfig
	err := s.db.Find(&configs).Error
	if err != nil {
		return nil, err
	}

	s.sqlConfigs = createCache(configs)

	result := map[string]string{}
	for _, sc := range configs {
		result[sc.Key] = sc.Value
	}

	s.config = &result
	return s.config, nil
}

func (s *gormStorage) WriteConfig() error {
	if s.config == nil {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var sqlConfigs []*sqlConfig
	for k, v := range *s.config {
		sc := &sqlConfig{Key: k, Value: v}
		if prepareChange(&s.sqlConfigs, sc) {
			sqlConfigs = append(sqlConfigs, sc)
		}
	}

	return createRows(s, sqlConfigs, &s.sqlConfigs)
}

func (s *gormStorage) LoadMirrors() (*model.Mirrors, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.mirrors != nil {
		return s.mirrors, nil
	}

	s.console.Printf("Loading mirrors...\n")

	result := model.NewMirrors()

	var mirrors []*sqlMirror
	err := s.db.Find(&mirrors).Error
	if err != nil {
		return nil, err
	}

	s.sqlMirrors = createCache(mirrors)

	var commits []*sqlCommit
	err = s.db.Find(&commits).Error
	if err != nil {
		return nil, err
	}

	s.sqlCommits = createCache(commits)

	for _, sm := range mirrors {
		m := result.GetOrCreateEx(sm.RemoteURL, &sm.ID)
		m.Name = sm.Name
		m.RootDir = sm.RootDir
		m.Branch = sm.Branch
		m.CutoffRevision = sm.CutoffRevision
		m.CutoffHash = sm.CutoffHash
		m.LastSynced = sm.LastSynced
		m.Stale = sm.Stale
		m.Data = decodeMap(sm.Data)
	}

	for _, sc := range commits {
		m := result.GetByID(sc.MirrorID)
		if m == nil {
			return nil, errors.Errorf("commit %v references unknown mirror %v", sc.Hash, sc.MirrorID)
		}

		c := m.GetOrCreateCommitEx(sc.Hash, &sc.ID)
		c.Message = sc.Message
		c.Parents = sc.Parents
		c.Children = sc.Children
		c.Date = sc.Date
		c.DateAuthored = sc.DateAuthored
		c.AuthorName = sc.AuthorName
		c.AuthorEmail = sc.AuthorEmail
		c.CommitterName = sc.CommitterName
		c.CommitterEmail = sc.CommitterEmail
		c.BugID = sc.BugID
		c.BugIDConfidence = sc.BugIDConfidence
		c.IsMerge = sc.IsMerge
		c.BacksOut = sc.BacksOut
		c.BackedOutBy = sc.BackedOutBy
		c.Ignore = sc.Ignore
		c.IgnoreReason = sc.IgnoreReason

		if sc.Features != nil {
			c.Features = sc.Features.ToModel()
		}
	}

	s.mirrors = result
	return result, nil
}

func (s *gormStorage) WriteMirrors() error {
	if s.mirrors == nil {
		return nil
	}

	for _, m := range s.mirrors.List() {
		err := s.WriteMirror(m)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *gormStorage) WriteMirror(mirror *model.Mirror) error {
	return s.WriteCommits(mirror, mirror.ListCommits())
}

func (s *gormStorage) WriteCommits(mirror *model.Mirror, commits []*model.Commit) error {
	if s.mirrors == nil {
		return errors.New("mirrors not loaded")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	sm := newSqlMirror(mirror)
	var sqlMirrors []*sqlMirror
	if prepareChange(&s.sqlMirrors, sm) {
		sqlMirrors = append(sqlMirrors, sm)
	}

	var sqlCommits []*sqlCommit
	for _, c := range commits {
		sc := newSqlCommit(mirror, c)
		if prepareChange(&s.sqlCommits, sc) {
			sqlCommits = append(sqlCommits, sc)
		}
	}

	err := createRows(s, sqlMirrors, &s.sqlMirrors)
	if err != nil {
		return err
	}

	return createRows(s, sqlCommits, &s.sqlCommits)
}

func (s *gormStorage) LoadCommitFiles(mirror *model.Mirror, commit *model.Commit) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var files []*sqlCommitFile
	err := s.db.Where("commit_id = ?", commit.ID).Find(&files).Error
	if err != nil {
		return err
	}

	for _, sf := range files {
		s.sqlCommitFiles[sf.CacheKey()] = sf
		commit.Files[sf.Path] = sf.ToModel()
	}

	return nil
}

func (s *gormStorage) WriteCommitFiles(mirror *model.Mirror, commits []*model.Commit) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var sqlFiles []*sqlCommitFile
	for _, c := range commits {
		for _, f := range c.Files {
			sf := newSqlCommitFile(c, f)
			if prepareChange(&s.sqlCommitFiles, sf) {
				sqlFiles = append(sqlFiles, sf)
			}
		}
	}

	return createRows(s, sqlFiles, &s.sqlCommitFiles)
}

func (s *gormStorage) LoadRegressionLinks() ([]*model.RegressionLink, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.links != nil {
		return s.links, nil
	}

	var links []*sqlRegressionLink
	err := s.db.Find(&links).Error
	if err != nil {
		return nil, err
	}

	s.sqlLinks = createCache(links)

	result := make([]*model.RegressionLink, 0, len(links))
	for _, sl := range links {
		result = append(result, sl.ToModel())
	}

	s.links = result
	return result, nil
}

func (s *gormStorage) WriteRegressionLinks(links []*model.RegressionLink) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.sqlLinks == nil {
		s.sqlLinks = map[string]*sqlRegressionLink{}
	}

	var sqlLinks []*sqlRegressionLink
	for _, l := range links {
		sl := newSqlRegressionLink(l)
		if prepareChange(&s.sqlLinks, sl) {
			sqlLinks = append(sqlLinks, sl)
		}
	}

	return createRows(s, sqlLinks, &s.sqlLinks)
}

func createRows[T sqlTable](s *gormStorage, rows []T, cache *map[string]T) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().Local()
	db := s.db.Session(&gorm.Session{
		NowFunc:         func() time.Time { return now },
		CreateBatchSize: 300,
	})

	err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	if err != nil {
		return err
	}

	addList(cache, rows)
	return nil
}

func prepareChange[T sqlTable](byID *map[string]T, n T) bool {
	o, ok := (*byID)[n.CacheKey()]
	if ok {
		ro := reflect.Indirect(reflect.ValueOf(o))
		rn := reflect.Indirect(reflect.ValueOf(n))

		rn.FieldByName("CreatedAt").Set(ro.FieldByName("CreatedAt"))
		rn.FieldByName("UpdatedAt").Set(ro.FieldByName("UpdatedAt"))
	}

	if reflect.DeepEqual(n, o) {
		return false
	} else {
		(*byID)[n.CacheKey()] = n
		return true
	}
}

func addList[T sqlTable](target *map[string]T, toAdd []T) {
	for _, v := range toAdd {
		(*target)[v.CacheKey()] = v
	}
}
