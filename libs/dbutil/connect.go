package dbutil

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// DBConfig represents the data needed to connect to a database.
type DBConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	EnableTLS          bool
	SkipVerifyTLS      bool
	CACert             string
	TLSCert            string
	TLSKey             string
	MaxOpenConnections int
	MaxIdleConnections int
}

// ConnectMySQL uses the provided config to initialize a MySQL connection,
// verifying it with a ping before returning.
func ConnectMySQL(dbconfig *DBConfig) (*sql.DB, error) {
	if dbconfig.User == "" || dbconfig.Host == "" || dbconfig.Name == "" {
		return nil, errors.New("dbutil: missing one or more of user, host, or name for db config")
	}

	tlsOpt := "?parseTime=true"
	if dbconfig.CACert != "" && dbconfig.TLSCert != "" && dbconfig.TLSKey != "" {
		rootCertPool := x509.NewCertPool()
		if ok := rootCertPool.AppendCertsFromPEM([]byte(dbconfig.CACert)); !ok {
			return nil, errors.New("dbutil: failed to append CA cert PEM")
		}
		cert, err := tls.X509KeyPair([]byte(dbconfig.TLSCert), []byte(dbconfig.TLSKey))
		if err != nil {
			return nil, err
		}
		if err := mysql.RegisterTLSConfig("custom", &tls.Config{
			RootCAs:            rootCertPool,
			Certificates:       []tls.Certificate{cert},
			InsecureSkipVerify: dbconfig.SkipVerifyTLS,
		}); err != nil {
			return nil, err
		}
		tlsOpt += "&tls=custom"
	} else if dbconfig.EnableTLS {
		if dbconfig.SkipVerifyTLS {
			tlsOpt += "&tls=skip-verify"
		} else {
			tlsOpt += "&tls=true"
		}
	}

	if dbconfig.Port == 0 {
		dbconfig.Port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s%s&charset=utf8mb4&collation=utf8mb4_unicode_ci&loc=Local&interpolateParams=true",
		dbconfig.User, dbconfig.Password, dbconfig.Host, dbconfig.Port, dbconfig.Name, tlsOpt)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if dbconfig.MaxOpenConnections != 0 {
		db.SetMaxOpenConns(dbconfig.MaxOpenConnections)
	}
	if dbconfig.MaxIdleConnections != 0 {
		db.SetMaxIdleConns(dbconfig.MaxIdleConnections)
	}
	return db, nil
}
