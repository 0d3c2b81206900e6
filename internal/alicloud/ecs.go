package alicloud

// 本文件查询 ECS 实例的网络信息，供 ecs: 目标解析使用。

import (
	"fmt"

	ecsclient "github.com/alibabacloud-go/ecs-20140526/v4/client"
)

const StatusRunning = "Running"

// ECSInstance ECS 实例的状态和地址
type ECSInstance struct {
	ID        string
	Status    string
	PublicIP  string // 分配的公网 IP（非 EIP）
	EIP       string // 绑定的弹性公网 IP
	PrivateIP string
}

// DescribeECSInstance 查询 ECS 实例详情（状态、公网 IP、EIP、私网 IP）
func DescribeECSInstance(ecsCli ECSAPI, instanceID, regionID string) (*ECSInstance, error) {
	req := &ecsclient.DescribeInstancesRequest{
		InstanceIds: teaString(fmt.Sprintf(`["%s"]`, instanceID)),
		RegionId:    &regionID,
	}

	resp, err := ecsCli.DescribeInstances(req)
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", instanceID, err)
	}

	if resp == nil || resp.Body == nil || resp.Body.Instances == nil ||
		resp.Body.Instances.Instance == nil || len(resp.Body.Instances.Instance) == 0 {
		return nil, fmt.Errorf("ECS instance %s: %w", instanceID, ErrResourceNotFound)
	}

	inst := resp.Body.Instances.Instance[0]
	result := &ECSInstance{
		ID:     deref(inst.InstanceId),
		Status: deref(inst.Status),
	}
	if inst.PublicIpAddress != nil && len(inst.PublicIpAddress.IpAddress) > 0 {
		result.PublicIP = deref(inst.PublicIpAddress.IpAddress[0])
	}
	if inst.EipAddress != nil {
		result.EIP = deref(inst.EipAddress.IpAddress)
	}
	if inst.VpcAttributes != nil && inst.VpcAttributes.PrivateIpAddress != nil && len(inst.VpcAttributes.PrivateIpAddress.IpAddress) > 0 {
		result.PrivateIP = deref(inst.VpcAttributes.PrivateIpAddress.IpAddress[0])
	} else if inst.InnerIpAddress != nil && len(inst.InnerIpAddress.IpAddress) > 0 {
		result.PrivateIP = deref(inst.InnerIpAddress.IpAddress[0])
	}
	return result, nil
}

func teaString(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
