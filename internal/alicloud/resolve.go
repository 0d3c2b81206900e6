package alicloud

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// HostPrefix 目标主机写成 ecs:<实例 ID> 时按 ECS 实例解析
const HostPrefix = "ecs:"

// Resolver 把 ecs:<实例 ID> 解析为公网地址，其他主机名原样返回
type Resolver struct {
	ECS      ECSAPI
	VPC      VPCAPI
	RegionID string
	// UsePrivateIP 没有公网地址时使用私网 IP（代理与实例在同一 VPC 内）
	UsePrivateIP bool
}

// IsECSHost 判断 host 是否为 ecs:<实例 ID> 形式
func IsECSHost(host string) bool {
	return strings.HasPrefix(host, HostPrefix)
}

// Resolve 解析顺序：实例公网 IP → 实例上的 EIP → VPC 中绑定到实例的 EIP → 私网 IP（可选）
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	if !IsECSHost(host) {
		return host, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	instanceID := strings.TrimSpace(strings.TrimPrefix(host, HostPrefix))
	if instanceID == "" {
		return "", fmt.Errorf("empty ECS instance ID in %q", host)
	}

	inst, err := DescribeECSInstance(r.ECS, instanceID, r.RegionID)
	if err != nil {
		return "", err
	}
	if inst.Status != StatusRunning {
		return "", fmt.Errorf("%s (%s): %w", instanceID, inst.Status, ErrInstanceNotRunning)
	}

	switch {
	case inst.PublicIP != "":
		return inst.PublicIP, nil
	case inst.EIP != "":
		return inst.EIP, nil
	}

	if r.VPC != nil {
		eip, err := DescribeInstanceEIP(r.VPC, instanceID, r.RegionID)
		if err == nil && eip.IP != "" {
			return eip.IP, nil
		}
		if err != nil && !errors.Is(err, ErrResourceNotFound) {
			log.Printf("[alicloud] EIP lookup for %s failed: %v", instanceID, err)
		}
	}

	if r.UsePrivateIP && inst.PrivateIP != "" {
		return inst.PrivateIP, nil
	}
	return "", fmt.Errorf("%s: %w", instanceID, ErrNoPublicAddress)
}
