package renderer

// avatarShaderSource is the WGSL program for CPU-skinned avatar primitives.
// Vertex buffer 0 holds per-frame position and normal (model space), buffer 1 the static UVs.
// Colors are written premultiplied so the transparent surface composites correctly.
const avatarShaderSource = `
struct FrameUniforms {
    view_proj: mat4x4<f32>,
    model: mat4x4<f32>,
    key_light: vec4<f32>,
    fill_light: vec4<f32>,
    ambient: vec4<f32>,
};

struct MaterialUniforms {
    base_color: vec4<f32>,
    shade_color: vec4<f32>,
    emissive: vec4<f32>,
    params: vec4<f32>,
};

@group(0) @binding(0) var<uniform> frame: FrameUniforms;
@group(1) @binding(0) var<uniform> material: MaterialUniforms;
@group(1) @binding(1) var base_texture: texture_2d<f32>;
@group(1) @binding(2) var base_sampler: sampler;

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) normal: vec3<f32>,
    @location(1) uv: vec2<f32>,
};

@vertex
fn vs_main(
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    let world = frame.model * vec4<f32>(position, 1.0);
    out.clip_position = frame.view_proj * world;
    out.normal = (frame.model * vec4<f32>(normal, 0.0)).xyz;
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput, @builtin(front_facing) front: bool) -> @location(0) vec4<f32> {
    let texel = textureSample(base_texture, base_sampler, in.uv);
    let color = texel * material.base_color;
    let flags = u32(material.params.y);
    let cutoff = material.params.x;
    let blend = material.params.z;

    var alpha = color.a;
    if ((flags & 1u) != 0u) {
        if (alpha < cutoff) {
            discard;
        }
        alpha = 1.0;
    } else if (blend < 0.5) {
        alpha = 1.0;
    }

    var rgb = color.rgb;
    if ((flags & 2u) == 0u) {
        var n = normalize(in.normal);
        if (!front) {
            n = -n;
        }
        let toon = smoothstep(-0.05, 0.05, dot(n, frame.key_light.xyz));
        let shade = color.rgb * material.shade_color.rgb;
        let key = mix(shade, color.rgb, toon) * frame.key_light.w;
        let fill = max(dot(n, frame.fill_light.xyz), 0.0) * frame.fill_light.w;
        rgb = key + color.rgb * (frame.ambient.x + fill);
    }
    rgb = clamp(rgb + material.emissive.rgb, vec3<f32>(0.0), vec3<f32>(1.0));
    return vec4<f32>(rgb * alpha, alpha);
}
`
