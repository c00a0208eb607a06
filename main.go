/*
 * Copyright (C) 2022-2025. Gardel <gardel741@outlook.com> and contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/ini.v1"
	"gorm.io/gorm"

	"ygg-federation/dto"
	"ygg-federation/model"
	"ygg-federation/router"
	"ygg-federation/service"
	"ygg-federation/util"
)

type MetaCfg struct {
	ServerName            string `ini:"server_name"`
	ImplementationName    string `ini:"implementation_name"`
	ImplementationVersion string `ini:"implementation_version"`
	Homepage              string `ini:"homepage"`
	Register              string `ini:"register"`
}

type ServerCfg struct {
	ServerAddress  string   `ini:"server_address"`
	TrustedProxies []string `ini:"trusted_proxies"`
}

type ProxyCfg struct {
	Secret                 string `ini:"secret"`
	Main                   string `ini:"main"`
	EnableMasterSlaveMode  bool   `ini:"enable_master_slave_mode"`
	EnableProfileKey       bool   `ini:"enable_profile_key"`
}

type RedisCfg struct {
	Address  string `ini:"address"`
	Password string `ini:"password"`
	Database int    `ini:"database"`
}

func main() {
	configFilePath := "config.ini"
	cfg, err := ini.LooseLoad(configFilePath)
	if err != nil {
		log.Fatal("无法读取配置文件", err)
	}

	meta := MetaCfg{
		ServerName:            "A Mojang Yggdrasil Federation Proxy",
		ImplementationName:    "ygg-federation",
		ImplementationVersion: "v0.1",
	}
	if err := cfg.Section("meta").MapTo(&meta); err != nil {
		log.Fatal("无法读取配置文件", err)
	}

	dbCfg := util.DbCfg{
		DatabaseDriver: "sqlite",
		DatabaseDsn:    "file:sqlite.db?cache=shared",
	}
	if err := cfg.Section("database").MapTo(&dbCfg); err != nil {
		log.Fatal("无法读取配置文件", err)
	}

	serverCfg := ServerCfg{
		ServerAddress: ":8080",
		TrustedProxies: []string{
			"127.0.0.0/8",
			"10.0.0.0/8",
			"192.168.0.0/16",
			"172.16.0.0/12",
		},
	}
	if err := cfg.Section("server").MapTo(&serverCfg); err != nil {
		log.Fatal("无法读取配置文件", err)
	}

	proxyCfg := ProxyCfg{
		EnableMasterSlaveMode: false,
		EnableProfileKey:      true,
	}
	if err := cfg.Section("proxy").MapTo(&proxyCfg); err != nil {
		log.Fatal("无法读取配置文件", err)
	}

	backends := map[string]string{}
	for _, key := range cfg.Section("backends").Keys() {
		backends[key.Name()] = key.String()
	}

	redisCfg := RedisCfg{Database: 0}
	_ = cfg.Section("redis").MapTo(&redisCfg)

	pathSection := cfg.Section("paths")
	privateKeyPath := pathSection.Key("private_key_file").MustString("private.pem")
	publicKeyPath := pathSection.Key("public_key_file").MustString("public.pem")

	// On a brand-new deployment there is no config.ini yet: write one seeded
	// with defaults and exit so the operator can fill in secret/main/backends
	// before the process ever tries to validate or serve with them.
	if _, err := os.Stat(configFilePath); err != nil && os.IsNotExist(err) {
		log.Println("配置文件不存在，已生成默认配置")
		_ = cfg.Section("meta").ReflectFrom(&meta)
		_ = cfg.Section("database").ReflectFrom(&dbCfg)
		_ = cfg.Section("server").ReflectFrom(&serverCfg)
		_ = cfg.Section("proxy").ReflectFrom(&proxyCfg)
		if err := cfg.SaveToIndent(configFilePath, " "); err != nil {
			log.Fatal("无法保存配置文件", err)
		}
		log.Println("请编辑配置文件后重新启动")
		os.Exit(0)
	}

	if proxyCfg.Secret == "" {
		log.Fatal("必须在 [proxy] 中配置 secret")
	}
	if proxyCfg.Main == "" {
		log.Fatal("必须在 [proxy] 中配置 main")
	}
	if _, ok := backends[proxyCfg.Main]; !ok {
		log.Fatalf("main 后端 %q 未在 [backends] 中定义\n", proxyCfg.Main)
	}

	privateKey := loadOrCreateRsaKey(privateKeyPath, publicKeyPath)
	publicKeyContent, err := os.ReadFile(publicKeyPath)
	if err != nil {
		log.Fatal("无法读取公钥内容", err)
	}

	db, err := gorm.Open(util.GetDialector(dbCfg), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		log.Fatal("无法连接数据库", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("无法连接数据库", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxIdleTime(8 * time.Second)
	if err := db.AutoMigrate(&model.ProfileMapping{}); err != nil {
		log.Fatal("无法导入数据库", err)
	}

	var revocationStore service.RevocationStore
	if redisCfg.Address != "" {
		revocationStore = service.NewRevocationStore(redis.NewClient(&redis.Options{
			Addr:     redisCfg.Address,
			Password: redisCfg.Password,
			DB:       redisCfg.Database,
		}))
	} else {
		revocationStore = service.NewRevocationStore(nil)
	}

	profileStore := service.NewProfileStore(db)
	signatures := service.NewSignatureService(privateKey)
	codec := service.NewTokenCodec([]byte(proxyCfg.Secret))
	upstreamClient := service.NewUpstreamClient()
	translator := service.NewTranslator(profileStore, signatures, backends, proxyCfg.Main, proxyCfg.EnableMasterSlaveMode)
	preProxy := service.NewPreProxy(profileStore, proxyCfg.Main, proxyCfg.EnableMasterSlaveMode)
	postProxy := service.NewPostProxy(translator, codec, proxyCfg.Main)
	federation := service.NewFederationService(backends, upstreamClient, codec, revocationStore, preProxy, postProxy, translator)
	certificates := service.NewCertificateService(signatures)

	serverMeta := dto.ServerMeta{}
	serverMeta.Meta.ServerName = meta.ServerName
	serverMeta.Meta.ImplementationName = meta.ImplementationName
	serverMeta.Meta.ImplementationVersion = meta.ImplementationVersion
	serverMeta.Meta.FeatureNoMojangNamespace = true
	serverMeta.Meta.FeatureEnableProfileKey = proxyCfg.EnableProfileKey
	serverMeta.Meta.FeatureUsernameCheck = false
	serverMeta.Meta.Links.Homepage = meta.Homepage
	serverMeta.Meta.Links.Register = meta.Register
	serverMeta.SignaturePublickey = string(publicKeyContent)

	r := gin.Default()
	if err := r.SetTrustedProxies(serverCfg.TrustedProxies); err != nil {
		log.Fatal(err)
	}
	router.InitRouters(r, &serverMeta, router.Services{
		Federation:        federation,
		Certificates:      certificates,
		Codec:             codec,
		ProfileKeyEnabled: proxyCfg.EnableProfileKey,
		AuthLimiter:       service.NewAuthenticateLimiter(),
	})

	srv := &http.Server{
		Addr:    serverCfg.ServerAddress,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("listen: %s\n", err)
		}
	}()
	log.Printf("已启动, 地址: %s\n", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("关闭...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("强制关闭:", err)
	}
	log.Println("退出")
}

func loadOrCreateRsaKey(privateKeyPath, publicKeyPath string) *rsa.PrivateKey {
	_, err := os.Stat(privateKeyPath)
	if err != nil && os.IsNotExist(err) {
		privatePem, err := os.OpenFile(privateKeyPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			log.Fatalln("无法创建私钥文件", err)
		}
		defer privatePem.Close()
		publicPem, err := os.OpenFile(publicKeyPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatalln("无法创建公钥文件", err)
		}
		defer publicPem.Close()

		privateKey, err := rsa.GenerateKey(rand.Reader, 4096)
		if err != nil {
			log.Fatalln("无法生成 RSA 密钥", err)
		}
		privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
		if err != nil {
			log.Fatalln("无法序列化 RSA 密钥", err)
		}
		if err := pem.Encode(privatePem, &pem.Block{Type: "PRIVATE KEY", Bytes: privateKeyBytes}); err != nil {
			log.Fatalln("无法写入私钥文件", err)
		}
		publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
		if err != nil {
			log.Fatalln("无法序列化 RSA 公钥", err)
		}
		if err := pem.Encode(publicPem, &pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyBytes}); err != nil {
			log.Fatalln("无法写入公钥文件", err)
		}
		log.Println("已生成 RSA 密钥对，请重新启动")
		os.Exit(0)
	} else if err != nil {
		log.Fatalln("无法打开私钥文件", err)
		return nil
	}

	pemContent, err := os.ReadFile(privateKeyPath)
	if err != nil {
		log.Fatalln("无法打开私钥文件", err)
	}
	pemBlock, _ := pem.Decode(pemContent)
	privateKeyI, err := x509.ParsePKCS8PrivateKey(pemBlock.Bytes)
	if err != nil {
		log.Fatalln("无法解析私钥文件", err)
	}
	return privateKeyI.(*rsa.PrivateKey)
}
