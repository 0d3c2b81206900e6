// Package alicloud 封装阿里云 SDK 调用，把 ecs:<实例 ID> 形式的目标主机解析为可拨号的地址。
// 所有函数通过接口（ECSAPI/VPCAPI/STSAPI）接收 SDK 客户端，支持 mock 测试。
package alicloud

import (
	"os"

	"github.com/alibabacloud-go/darabonba-openapi/v2/client"
	ecsclient "github.com/alibabacloud-go/ecs-20140526/v4/client"
	stsclient "github.com/alibabacloud-go/sts-20150401/v2/client"
	vpcclient "github.com/alibabacloud-go/vpc-20160428/v6/client"

	"github.com/hwuu/sftpproxy/internal/config"
)

const (
	DefaultRegion   = "ap-southeast-1" // 默认区域：新加坡
	EnvAccessKeyID  = "ALICLOUD_ACCESS_KEY_ID"
	EnvAccessSecret = "ALICLOUD_ACCESS_KEY_SECRET"
	EnvRegion       = "ALICLOUD_REGION"
)

// Config 阿里云 SDK 认证配置
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	RegionID        string
}

// LoadConfig 加载阿里云配置。
// 优先级：环境变量 → ~/.sftpproxy/credentials → 报错。
func LoadConfig() (*Config, error) {
	return loadConfig(config.LoadCredentials)
}

// LoadConfigFrom 同 LoadConfig，凭证文件路径由调用方指定
func LoadConfigFrom(credentialsPath string) (*Config, error) {
	return loadConfig(func() (*config.Credentials, error) {
		return config.LoadCredentialsFrom(credentialsPath)
	})
}

func loadConfig(loadCredentials func() (*config.Credentials, error)) (*Config, error) {
	accessKeyID := os.Getenv(EnvAccessKeyID)
	accessKeySecret := os.Getenv(EnvAccessSecret)

	if accessKeyID != "" && accessKeySecret != "" {
		return &Config{
			AccessKeyID:     accessKeyID,
			AccessKeySecret: accessKeySecret,
			RegionID:        regionOr(os.Getenv(EnvRegion)),
		}, nil
	}

	cred, err := loadCredentials()
	if err != nil {
		// 环境变量部分设置但不完整时，给出具体提示
		if accessKeyID != "" || accessKeySecret != "" {
			if accessKeyID == "" {
				return nil, ErrMissingAccessKeyID
			}
			return nil, ErrMissingAccessKeySecret
		}
		return nil, ErrMissingConfig
	}

	region := os.Getenv(EnvRegion)
	if region == "" {
		region = cred.Region
	}
	return &Config{
		AccessKeyID:     cred.AccessKeyID,
		AccessKeySecret: cred.AccessKeySecret,
		RegionID:        regionOr(region),
	}, nil
}

func regionOr(region string) string {
	if region == "" {
		return DefaultRegion
	}
	return region
}

// Clients 持有所有阿里云 SDK 客户端实例
type Clients struct {
	ECS *ecsclient.Client
	VPC *vpcclient.Client
	STS *stsclient.Client
}

// NewClients 使用统一配置初始化 ECS/VPC/STS 三个 SDK 客户端
func NewClients(cfg *Config) (*Clients, error) {
	openAPIConfig := &client.Config{
		AccessKeyId:     &cfg.AccessKeyID,
		AccessKeySecret: &cfg.AccessKeySecret,
		RegionId:        &cfg.RegionID,
	}

	ecsCli, err := ecsclient.NewClient(openAPIConfig)
	if err != nil {
		return nil, err
	}

	vpcCli, err := vpcclient.NewClient(openAPIConfig)
	if err != nil {
		return nil, err
	}

	stsCli, err := stsclient.NewClient(openAPIConfig)
	if err != nil {
		return nil, err
	}

	return &Clients{
		ECS: ecsCli,
		VPC: vpcCli,
		STS: stsCli,
	}, nil
}

// NewResolver 基于 SDK 客户端构造主机解析器
func (c *Clients) NewResolver(regionID string) *Resolver {
	return &Resolver{ECS: c.ECS, VPC: c.VPC, RegionID: regionID}
}
