package alicloud

import (
	"fmt"

	vpcclient "github.com/alibabacloud-go/vpc-20160428/v6/client"
)

type EIPResource struct {
	ID     string
	IP     string
	Status string
}

// DescribeInstanceEIP 查询绑定到 ECS 实例的 EIP，未绑定时返回 ErrResourceNotFound
func DescribeInstanceEIP(vpcCli VPCAPI, instanceID, regionID string) (*EIPResource, error) {
	req := &vpcclient.DescribeEipAddressesRequest{
		RegionId:               &regionID,
		AssociatedInstanceId:   &instanceID,
		AssociatedInstanceType: teaString("EcsInstance"),
	}

	resp, err := vpcCli.DescribeEipAddresses(req)
	if err != nil {
		return nil, fmt.Errorf("failed to describe EIP of %s: %w", instanceID, err)
	}

	if resp == nil || resp.Body == nil || resp.Body.EipAddresses == nil ||
		len(resp.Body.EipAddresses.EipAddress) == 0 {
		return nil, ErrResourceNotFound
	}

	eip := resp.Body.EipAddresses.EipAddress[0]
	return &EIPResource{
		ID:     deref(eip.AllocationId),
		IP:     deref(eip.IpAddress),
		Status: deref(eip.Status),
	}, nil
}
