package agent

// 工具名常量，贯穿转录、审批与执行器。
const (
	ToolCreateImage  = "create_image"
	ToolEditImage    = "edit_image"
	ToolGenerateLogo = "generate_logo"
	ToolListGallery  = "list_gallery"
)

// DefaultTools 返回内置的工具规范。生成/编辑类工具在执行前需要人工
// 审批；list_gallery 不需要，演示状态机的跳过路径。
func DefaultTools() []ToolSpec {
	return []ToolSpec{
		{
			Name:             ToolCreateImage,
			Description:      "Generate a marketing image (flyer, banner, social post) from a prompt. Requires user approval before running.",
			RequiresApproval: true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{
						"type":        "string",
						"description": "Full visual description of the image to generate.",
					},
					"size": map[string]any{
						"type":        "string",
						"description": "Optional size hint, e.g. 1024x1024.",
					},
				},
				"required":             []string{"prompt"},
				"additionalProperties": false,
			},
		},
		{
			Name:             ToolEditImage,
			Description:      "Edit an existing gallery image by id according to the instructions. Requires user approval before running.",
			RequiresApproval: true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"image_id": map[string]any{
						"type":        "string",
						"description": "Gallery id of the image to edit.",
					},
					"instructions": map[string]any{
						"type":        "string",
						"description": "What to change in the image.",
					},
				},
				"required":             []string{"image_id", "instructions"},
				"additionalProperties": false,
			},
		},
		{
			Name:             ToolGenerateLogo,
			Description:      "Generate a brand logo from a prompt. Requires user approval before running.",
			RequiresApproval: true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{
						"type":        "string",
						"description": "Description of the logo: brand name, style, colors.",
					},
				},
				"required":             []string{"prompt"},
				"additionalProperties": false,
			},
		},
		{
			Name:        ToolListGallery,
			Description: "List the images currently in the user's media gallery.",
			Parameters: map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"additionalProperties": false,
			},
		},
	}
}

// SpecByName 按名称查找内置工具。
func SpecByName(name string) (ToolSpec, bool) {
	for _, spec := range DefaultTools() {
		if spec.Name == name {
			return spec, true
		}
	}
	return ToolSpec{}, false
}

// RequiresApproval 报告工具是否需要审批；未知工具默认需要。
func RequiresApproval(name string) bool {
	spec, ok := SpecByName(name)
	if !ok {
		return true
	}
	return spec.RequiresApproval
}
